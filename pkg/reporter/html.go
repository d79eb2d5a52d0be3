package reporter

import (
	"fmt"
	"html/template"
	"io"
	"strings"
)

const htmlTemplate = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>S3 Tier Optimizer Report</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: #f5f7fa;
            color: #333;
            padding: 20px;
            line-height: 1.6;
        }
        .container {
            max-width: 1400px;
            margin: 0 auto;
            background: white;
            border-radius: 8px;
            box-shadow: 0 2px 8px rgba(0, 0, 0, 0.1);
            overflow: hidden;
        }
        .header {
            background: linear-gradient(135deg, #e47911 0%, #8c4a0a 100%);
            color: white;
            padding: 50px 40px;
        }
        .header h1 { font-size: 2.8em; margin-bottom: 15px; }
        .summary {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(280px, 1fr));
            gap: 25px;
            padding: 40px;
            background: linear-gradient(to bottom, #f8f9fa 0%, #fff 100%);
        }
        .summary-card {
            background: white;
            padding: 30px;
            border-radius: 12px;
            border: 2px solid #e8eaed;
        }
        .summary-card h3 {
            color: #5f6368;
            font-size: 0.85em;
            text-transform: uppercase;
            letter-spacing: 1.5px;
            margin-bottom: 15px;
        }
        .summary-card .value { font-size: 3em; font-weight: 700; line-height: 1; }
        .summary-card.savings { border-left: 6px solid #34a853; }
        .summary-card.savings .value { color: #34a853; }
        .summary-card.buckets { border-left: 6px solid #326ce5; }
        .summary-card.buckets .value { color: #326ce5; }
        .summary-card.objects { border-left: 6px solid #fbbc04; }
        .summary-card.objects .value { color: #fbbc04; }
        .section { padding: 50px 40px; }
        .section h2 { font-size: 2em; margin-bottom: 10px; color: #202124; }
        table {
            width: 100%;
            border-collapse: separate;
            border-spacing: 0;
            margin-top: 25px;
        }
        th {
            background: #326ce5;
            color: white;
            padding: 18px 15px;
            text-align: left;
            text-transform: uppercase;
            font-size: 0.95em;
        }
        td { padding: 18px 15px; border-bottom: 1px solid #f0f2f4; }
        .tier-badge {
            padding: 6px 12px;
            border-radius: 6px;
            font-size: 0.75em;
            font-weight: 700;
            background: #e8f0fe;
            color: #1a73e8;
        }
        .outcome-succeeded { color: #1e8e3e; font-weight: 700; }
        .outcome-partial_failure, .outcome-cancelled { color: #f9ab00; font-weight: 700; }
        .outcome-not_started { color: #d93025; font-weight: 700; }
        .footer {
            background: #202124;
            color: #9aa0a6;
            padding: 40px;
            text-align: center;
        }
        .footer strong { color: #fff; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>S3 Tier Optimizer Report</h1>
            <p><strong>Generated:</strong> {{.GeneratedAt.Format "January 2, 2006 15:04:05 MST"}}</p>
        </div>

        <div class="summary">
            <div class="summary-card savings">
                <h3>Total Monthly Savings</h3>
                <div class="value">${{printf "%.2f" .TotalSavings}}</div>
            </div>
            <div class="summary-card buckets">
                <h3>Buckets Analyzed</h3>
                <div class="value">{{.AnalyzedCount}}</div>
            </div>
            <div class="summary-card objects">
                <h3>Objects To Transition</h3>
                <div class="value">{{.ObjectsToTransition}}</div>
            </div>
        </div>

        <div class="section">
            <h2>Target Tiers</h2>
            <table>
                <thead>
                    <tr><th>Tier</th><th>Objects</th><th>Buckets</th><th>Savings</th><th>Share</th></tr>
                </thead>
                <tbody>
                    {{range .SortedTierStats}}
                    <tr>
                        <td><span class="tier-badge">{{.Tier}}</span></td>
                        <td>{{.ObjectCount}}</td>
                        <td>{{.Buckets}}</td>
                        <td>${{printf "%.2f" .TotalSavings}}</td>
                        <td>{{printf "%.1f" .SavingsShare}}%</td>
                    </tr>
                    {{end}}
                </tbody>
            </table>
        </div>

        <div class="section">
            <h2>Buckets</h2>
            <table>
                <thead>
                    <tr><th>Bucket</th><th>Outcome</th><th>Objects</th><th>Transitions</th><th>Monthly Savings</th></tr>
                </thead>
                <tbody>
                    {{range .Buckets}}
                    <tr>
                        <td><strong>{{.Bucket}}</strong></td>
                        <td><span class="outcome-{{.Outcome | lower}}">{{.Outcome}}</span></td>
                        {{if .Analysis}}
                        <td>{{.Analysis.TotalObjects}}</td>
                        <td>
                            {{range .Analysis.Groups}}
                            {{.FromTier}} &rarr; <span class="tier-badge">{{.ToTier}}</span> {{.ObjectCount}} ({{printf "%.1f" .PercentageOfBucket}}%)<br>
                            {{end}}
                        </td>
                        <td>${{printf "%.2f" .Analysis.Summary.MonthlySavings}}</td>
                        {{else}}
                        <td colspan="3">{{.Error}}</td>
                        {{end}}
                    </tr>
                    {{end}}
                </tbody>
            </table>
        </div>

        <div class="footer">
            <p>Generated by <strong>s3-tier-optimizer</strong></p>
        </div>
    </div>
</body>
</html>
`

// GenerateHTML creates an HTML report
func GenerateHTML(report *Report, writer io.Writer) error {
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"lower": func(s interface{}) string {
			return strings.ToLower(fmt.Sprintf("%v", s))
		},
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	if err := tmpl.Execute(writer, report); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return nil
}
