// Package report renders audit results as an HTML report and a CSV of
// actionable recommendations, both in French for the audit's SEO audience.
package report

import (
	"encoding/csv"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/orneryd/linkaudit/pkg/linkaudit"
)

// Save writes the HTML report and recommendations CSV into dir, creating
// it if needed. Returns the two file paths.
func Save(result *linkaudit.Result, dir string) (htmlPath, csvPath string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create output dir: %w", err)
	}

	stamp := result.GeneratedAt.Format("20060102_150405")
	htmlPath = filepath.Join(dir, fmt.Sprintf("audit_report_%s.html", stamp))
	csvPath = filepath.Join(dir, fmt.Sprintf("recommendations_%s.csv", stamp))

	hf, err := os.Create(htmlPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to create report: %w", err)
	}
	defer hf.Close()
	if err := WriteHTML(result, hf); err != nil {
		return "", "", err
	}

	cf, err := os.Create(csvPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to create csv: %w", err)
	}
	defer cf.Close()
	if err := WriteRecommendationsCSV(result, cf); err != nil {
		return "", "", err
	}

	return htmlPath, csvPath, nil
}

// scoreColor maps the quality score to the traffic-light palette used in
// the report header.
func scoreColor(score float64) string {
	switch {
	case score >= 80:
		return "#28a745"
	case score >= 60:
		return "#ffc107"
	default:
		return "#dc3545"
	}
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"scoreColor": scoreColor,
	"pct":        func(f float64) string { return fmt.Sprintf("%.1f", f) },
}).Parse(`<!DOCTYPE html>
<html lang="fr">
<head>
<meta charset="UTF-8">
<title>Audit de Maillage Interne - {{.Site}}</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; margin: 40px; line-height: 1.6; color: #333; background: #f8f9fa; }
.container { max-width: 1100px; margin: 0 auto; }
.header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 30px; border-radius: 10px; margin-bottom: 30px; text-align: center; }
.stats-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(180px, 1fr)); gap: 20px; margin: 20px 0; }
.stat-card { background: white; padding: 20px; border-radius: 8px; border-left: 4px solid #007bff; }
.stat-number { font-size: 2.2em; font-weight: bold; color: #007bff; }
.stat-label { color: #6c757d; font-size: 0.9em; }
.section { background: white; padding: 20px; margin: 20px 0; border-radius: 8px; }
.warning { background: #fff3cd; border-left: 4px solid #ffc107; padding: 15px; margin: 15px 0; border-radius: 5px; }
table { border-collapse: collapse; width: 100%; margin: 20px 0; }
th, td { padding: 10px; text-align: left; border-bottom: 1px solid #e1e5e9; }
th { background-color: #f8f9fa; }
.url { word-break: break-all; font-family: monospace; font-size: 0.85em; }
</style>
</head>
<body>
<div class="container">
<div class="header">
<h1>🔗 Audit de Maillage Interne</h1>
<p><strong>Site :</strong> {{.Site}}</p>
<p><strong>Date :</strong> {{.GeneratedAt.Format "02/01/2006 à 15:04"}}</p>
<p><strong>Run :</strong> {{.RunID}}</p>
</div>

<div class="stats-grid">
<div class="stat-card"><div class="stat-number">{{.Graph.Stats.TotalPages}}</div><div class="stat-label">Pages analysées</div></div>
<div class="stat-card"><div class="stat-number">{{.Graph.Stats.EditorialLinks}}</div><div class="stat-label">Liens éditoriaux</div></div>
<div class="stat-card"><div class="stat-number">{{pct .Graph.Stats.EditorialRatio}}%</div><div class="stat-label">Ratio éditorial</div></div>
<div class="stat-card" style="border-left-color: {{scoreColor .Quality.Score}}"><div class="stat-number" style="color: {{scoreColor .Quality.Score}}">{{pct .Quality.Score}}/100</div><div class="stat-label">Score qualité</div></div>
<div class="stat-card"><div class="stat-number">{{pct .Graph.Stats.AvgEditorialPerPage}}</div><div class="stat-label">Liens éditoriaux/page</div></div>
</div>

{{if .Graph.OrphanPages}}
<div class="section">
<h2>🏝️ Pages orphelines ({{len .Graph.OrphanPages}})</h2>
<div class="warning">Aucun lien entrant éditorial ne pointe vers ces pages.</div>
<ul>{{range .Graph.OrphanPages}}<li class="url">{{.}}</li>{{end}}</ul>
</div>
{{end}}

<div class="section">
<h2>📈 Pages les plus liées</h2>
<table><tr><th>Page</th><th>Liens entrants</th></tr>
{{range .Graph.MostLinkedPages}}<tr><td class="url">{{.URL}}</td><td>{{.Count}}</td></tr>{{end}}
</table>
</div>

<div class="section">
<h2>⚓ Ancres les plus fréquentes</h2>
<table><tr><th>Ancre</th><th>Occurrences</th></tr>
{{range .Graph.TopAnchors}}<tr><td>{{.Anchor}}</td><td>{{.Count}}</td></tr>{{end}}
</table>
{{if .Graph.OverOptimizedAnchors}}
<div class="warning">Ancres répétées au-delà du seuil : {{range $anchor, $count := .Graph.OverOptimizedAnchors}}« {{$anchor}} » ({{$count}}×) {{end}}</div>
{{end}}
</div>

<div class="section">
<h2>🧐 Qualité des ancres</h2>
<table>
<tr><th>Catégorie</th><th>Nombre</th></tr>
<tr><td>Bonnes ancres (2-6 mots)</td><td>{{len .Quality.Buckets.GoodQuality}}</td></tr>
<tr><td>Ancres trop courtes</td><td>{{len .Quality.Buckets.TooShort}}</td></tr>
<tr><td>Ancres trop longues</td><td>{{len .Quality.Buckets.TooLong}}</td></tr>
<tr><td>Ancres sur-optimisées</td><td>{{len .Quality.Buckets.KeywordStuffed}}</td></tr>
<tr><td>URLs en guise d'ancre</td><td>{{len .Quality.Buckets.URLAnchors}}</td></tr>
</table>
</div>

{{if .Semantic}}
<div class="section">
<h2>🎯 Thèmes sémantiques</h2>
{{if .Semantic.Themes}}
<table><tr><th>Thème</th><th>Ancres</th></tr>
{{range $name, $anchors := .Semantic.Themes}}<tr><td>{{$name}}</td><td>{{len $anchors}}</td></tr>{{end}}
</table>
{{else}}<p>Aucun thème identifiable (ancres trop peu diversifiées).</p>{{end}}
{{if .Semantic.Gaps}}
<h3>Opportunités de maillage</h3>
<table><tr><th>Page A</th><th>Page B</th><th>Similarité</th></tr>
{{range .Semantic.Gaps}}<tr><td class="url">{{.PageA}}</td><td class="url">{{.PageB}}</td><td>{{pct .Similarity}}</td></tr>{{end}}
</table>
{{end}}
</div>
{{else if .SemanticUnavailable}}
<div class="section"><div class="warning">Analyse sémantique indisponible : {{.SemanticUnavailable}}</div></div>
{{end}}

{{if .Diagnostics}}
<div class="section">
<h2>⚠️ Avertissements</h2>
<ul>{{range .Diagnostics}}<li>{{.}}</li>{{end}}</ul>
</div>
{{end}}
</div>
</body>
</html>
`))

// WriteHTML renders the audit report.
func WriteHTML(result *linkaudit.Result, w io.Writer) error {
	if err := reportTemplate.Execute(w, result); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

// WriteRecommendationsCSV exports one actionable row per finding: orphan
// pages, weak anchors, repeated anchors and the site-level strategy flags.
func WriteRecommendationsCSV(result *linkaudit.Result, w io.Writer) error {
	cw := csv.NewWriter(w)

	rows := [][]string{{"Type", "Priorité", "URL", "Problème", "Recommandation", "Détails"}}

	for _, orphan := range result.Graph.OrphanPages {
		rows = append(rows, []string{
			"Page orpheline", "Haute", orphan,
			"Aucun lien entrant éditorial",
			"Créer des liens éditoriaux contextuels",
			"Page sans maillage interne éditorial",
		})
	}

	for _, item := range result.Quality.Buckets.TooShort {
		rows = append(rows, []string{
			"Ancre défaillante", "Moyenne", item.Destination,
			fmt.Sprintf("Ancre trop courte: '%s'", item.Anchor),
			"Utiliser une ancre plus descriptive",
			fmt.Sprintf("Ancre actuelle: '%s'", item.Anchor),
		})
	}
	for _, item := range result.Quality.Buckets.KeywordStuffed {
		rows = append(rows, []string{
			"Ancre sur-optimisée", "Haute", item.Destination,
			fmt.Sprintf("Ancre potentiellement sur-optimisée: '%s'", item.Anchor),
			"Diversifier avec des expressions naturelles",
			"Risque de pénalité SEO",
		})
	}
	for _, item := range result.Quality.Buckets.URLAnchors {
		rows = append(rows, []string{
			"Ancre non-optimisée", "Moyenne", item.Destination,
			fmt.Sprintf("URL utilisée comme ancre: '%s'", item.Anchor),
			"Remplacer par une ancre descriptive",
			"Les URLs ne sont pas des ancres optimales",
		})
	}

	for _, anchor := range sortedAnchors(result.Graph.OverOptimizedAnchors) {
		count := result.Graph.OverOptimizedAnchors[anchor]
		rows = append(rows, []string{
			"Ancre répétitive", "Moyenne", "Multiple",
			fmt.Sprintf("Ancre utilisée %d fois: '%s'", count, anchor),
			"Diversifier les variantes sémantiques",
			fmt.Sprintf("Répétition excessive (%d occurrences)", count),
		})
	}

	if result.Semantic != nil {
		for _, weak := range result.Semantic.Coherence.WeakLinks {
			rows = append(rows, []string{
				"Ancre incohérente", "Moyenne", weak.Destination,
				fmt.Sprintf("L'ancre '%s' ne reflète pas le contenu de la page", weak.Anchor),
				"Aligner l'ancre sur le sujet de la page cible",
				fmt.Sprintf("Cohérence sémantique: %.2f", weak.Score),
			})
		}
		for _, gap := range result.Semantic.Gaps {
			rows = append(rows, []string{
				"Opportunité de maillage", "Basse", gap.PageA,
				fmt.Sprintf("Page proche sémantiquement de %s", gap.PageB),
				"Créer un lien contextuel entre les deux pages",
				fmt.Sprintf("Similarité: %.2f", gap.Similarity),
			})
		}
	}

	stats := result.Graph.Stats
	if stats.EditorialRatio < 50 {
		rows = append(rows, []string{
			"Stratégie globale", "Haute", result.Site,
			fmt.Sprintf("Ratio éditorial faible (%.1f%%)", stats.EditorialRatio),
			"Augmenter les liens éditoriaux dans les contenus",
			"Moins de 50% de liens éditoriaux",
		})
	}
	if stats.AvgEditorialPerPage < 2 {
		rows = append(rows, []string{
			"Densité de maillage", "Moyenne", result.Site,
			fmt.Sprintf("Maillage insuffisant (%.1f liens/page)", stats.AvgEditorialPerPage),
			"Viser 2-3 liens éditoriaux minimum par page",
			"Maillage interne sous-optimal",
		})
	}

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// sortedAnchors orders the over-optimized anchors count descending, anchor
// ascending on ties, so the export is stable across runs.
func sortedAnchors(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for a := range m {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if m[out[i]] != m[out[j]] {
			return m[out[i]] > m[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}
