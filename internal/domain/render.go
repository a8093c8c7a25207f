package domain

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"
)

var summaryFuncs = template.FuncMap{
	"num": formatNumber,
	"dp2": func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
	"pct": formatPercentage,
}

var summaryTemplate = template.Must(template.New("summary").Funcs(summaryFuncs).Parse(
	`<p>Total Output Areas: {{.TotalOutputAreas}}</p>
{{- if .Empty}}
<p>No intersecting output areas found.</p>
{{- else}}
<p>Intersecting Output Areas: {{.IntersectingOutputAreas}}</p>
<p>Total Population: {{num .TotalPopulation}}</p>
<p>Average Age: {{dp2 .AverageAge}}</p>
<p>Average Deprivation: {{dp2 .AverageDeprivation}}</p>
<p>Average Cars: {{dp2 .AverageCars}}</p>
{{- range .Categories}}
<h3>{{.Name}}</h3>
<ul>
{{- range .Rows}}
  <li>{{.Label}}: {{num .Sum}} ({{pct .}})</li>
{{- end}}
</ul>
{{- end}}
{{- end}}
`))

// RenderHTML renders the summary block shown beside the map.
func RenderHTML(s Summary) (string, error) {
	var buf bytes.Buffer
	if err := summaryTemplate.Execute(&buf, s); err != nil {
		return "", fmt.Errorf("render summary: %w", err)
	}
	return buf.String(), nil
}

// RenderText renders the summary as plain text for terminals.
func RenderText(s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total Output Areas: %d\n", s.TotalOutputAreas)
	if s.Empty {
		b.WriteString("No intersecting output areas found.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Intersecting Output Areas: %d\n", s.IntersectingOutputAreas)
	fmt.Fprintf(&b, "Total Population: %s\n", formatNumber(s.TotalPopulation))
	fmt.Fprintf(&b, "Average Age: %.2f\n", s.AverageAge)
	fmt.Fprintf(&b, "Average Deprivation: %.2f\n", s.AverageDeprivation)
	fmt.Fprintf(&b, "Average Cars: %.2f\n", s.AverageCars)
	for _, c := range s.Categories {
		fmt.Fprintf(&b, "\n%s\n", c.Name)
		for _, r := range c.Rows {
			fmt.Fprintf(&b, "  %s: %s (%s)\n", r.Label, formatNumber(r.Sum), formatPercentage(r))
		}
	}
	return b.String()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatPercentage(r CategoryRow) string {
	if r.NoDenominator {
		return "n/a"
	}
	return strconv.FormatFloat(r.Percentage, 'f', 2, 64) + "%"
}
