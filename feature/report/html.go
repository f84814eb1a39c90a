package report

import (
	"fmt"
	"io"
	"strings"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"

	"koala-diff/core/diff"
)

// WriteHTML writes the report as a self-contained dashboard page.
func WriteHTML(w io.Writer, r *Report) error {
	return reportPage(r).Render(w)
}

func reportPage(r *Report) Node {
	return Doctype(HTML(
		Lang("en"),
		Head(
			Meta(Charset("utf-8")),
			Meta(Name("viewport"), Content("width=device-width, initial-scale=1")),
			TitleEl(Text("Comparison Report "+r.ID)),
			StyleEl(Raw(reportCSS)),
		),
		Body(
			Main(Class("report"),
				H1(Text("Comparison Report")),
				P(Class("muted"), Text(fmt.Sprintf("%s vs %s, keyed on %s, generated %s",
					r.Source, r.Target, strings.Join(r.KeyColumns, ", "),
					r.GeneratedAt.Format("2006-01-02 15:04:05 UTC")))),
				statCards(r),
				summarySection(r),
				schemaDriftSection(r),
				columnSection(r),
				sampleSection(r),
			),
		),
	))
}

func statCards(r *Report) Node {
	card := func(label string, count int64, class string) Node {
		return Div(Class("card "+class),
			Span(Class("count"), Text(fmt.Sprintf("%d", count))),
			Span(Class("label"), Text(label)),
		)
	}
	return Div(Class("cards"),
		card("Matched", r.Counts[diff.Matched], "ok"),
		card("Modified", r.Counts[diff.Modified], "warn"),
		card("Added", r.Counts[diff.Added], "info"),
		card("Removed", r.Counts[diff.Removed], "info"),
		card("Duplicate Keys", r.Counts[diff.DuplicateKey], "bad"),
	)
}

func summarySection(r *Report) Node {
	return Section(
		H2(Text("Key Matching")),
		Table(
			TBody(
				Tr(Td(Text("Source rows")), Td(Text(fmt.Sprintf("%d", r.SourceRows)))),
				Tr(Td(Text("Target rows")), Td(Text(fmt.Sprintf("%d", r.TargetRows)))),
				Tr(Td(Text("Pairs compared")), Td(Text(fmt.Sprintf("%d", r.ComparedPairs)))),
				Tr(Td(Text("Match integrity")), Td(Text(fmt.Sprintf("%.4f", r.MatchIntegrity)))),
				Tr(Td(Text("Partitions")), Td(Text(fmt.Sprintf("%d", r.Fanout)))),
				Tr(Td(Text("Elapsed")), Td(Text(fmt.Sprintf("%dms", r.ElapsedMS)))),
			),
		),
	)
}

func schemaDriftSection(r *Report) Node {
	if len(r.SchemaDrift) == 0 {
		return nil
	}
	rows := make([]Node, 0, len(r.SchemaDrift))
	for _, d := range r.SchemaDrift {
		detail := string(d.Kind)
		if d.Kind == "kind_changed" {
			detail = fmt.Sprintf("%s -> %s", d.SourceKind, d.TargetKind)
		}
		rows = append(rows, Tr(Td(Text(d.Column)), Td(Text(detail))))
	}
	return Section(
		H2(Text("Schema Drift")),
		Table(THead(Tr(Th(Text("Column")), Th(Text("Drift")))), TBody(Group(rows))),
	)
}

func columnSection(r *Report) Node {
	if len(r.Columns) == 0 {
		return nil
	}
	rows := make([]Node, 0, len(r.Columns))
	for _, c := range r.Columns {
		rows = append(rows, Tr(
			Td(Text(c.Name)),
			Td(Text(fmt.Sprintf("%d", c.Changed))),
			Td(Text(fmt.Sprintf("%.4f", c.MatchRate))),
			Td(Text(fmt.Sprintf("%d", c.NulledToValue))),
			Td(Text(fmt.Sprintf("%d", c.ValueToNulled))),
			Td(Text(fmt.Sprintf("%d / %d", c.SourceNulls, c.TargetNulls))),
			Td(Text(fmt.Sprintf("%.4g", c.MeanDelta))),
			Td(Text(fmt.Sprintf("%.4g", c.DeltaVariance))),
		))
	}
	return Section(
		H2(Text("Column Metrics")),
		Table(
			THead(Tr(
				Th(Text("Column")), Th(Text("Changed")), Th(Text("Match Rate")),
				Th(Text("Null>Value")), Th(Text("Value>Null")), Th(Text("Nulls (src/tgt)")),
				Th(Text("Mean Delta")), Th(Text("Variance")),
			)),
			TBody(Group(rows)),
		),
	)
}

func sampleSection(r *Report) Node {
	rows := make([]Node, 0, 16)
	for _, c := range r.Columns {
		for _, s := range c.Samples {
			rows = append(rows, Tr(
				Td(Text(c.Name)), Td(Text(s.Key)),
				Td(Class("old"), Text(s.Old)), Td(Class("new"), Text(s.New)),
			))
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return Section(
		H2(Text("Mismatch Samples")),
		Table(
			THead(Tr(Th(Text("Column")), Th(Text("Key")), Th(Text("Old")), Th(Text("New")))),
			TBody(Group(rows)),
		),
	)
}

const reportCSS = `
body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; margin: 0; background: #f6f8fa; color: #1f2328; }
.report { max-width: 960px; margin: 0 auto; padding: 2rem 1rem; }
.muted { color: #656d76; }
.cards { display: flex; gap: 1rem; flex-wrap: wrap; margin: 1.5rem 0; }
.card { flex: 1 1 140px; background: #fff; border: 1px solid #d0d7de; border-radius: 6px; padding: 1rem; text-align: center; }
.card .count { display: block; font-size: 1.8rem; font-weight: 600; }
.card .label { color: #656d76; font-size: 0.85rem; }
.card.ok .count { color: #1a7f37; }
.card.warn .count { color: #9a6700; }
.card.bad .count { color: #cf222e; }
.card.info .count { color: #0969da; }
section { background: #fff; border: 1px solid #d0d7de; border-radius: 6px; padding: 1rem 1.25rem; margin-bottom: 1.5rem; }
table { border-collapse: collapse; width: 100%; font-size: 0.9rem; }
th, td { text-align: left; padding: 0.4rem 0.6rem; border-bottom: 1px solid #d8dee4; }
th { color: #656d76; font-weight: 600; }
td.old { color: #cf222e; }
td.new { color: #1a7f37; }
`
