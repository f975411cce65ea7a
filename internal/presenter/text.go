package presenter

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// WriteText renders a view for a terminal.
func WriteText(out io.Writer, view View) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	switch v := view.(type) {
	case EnrollView:
		fmt.Fprintf(w, "%s\n%s\n\n", v.Title, v.Subtitle)
		fmt.Fprintf(w, "User ID\t%s\n", v.UserID)
		fmt.Fprintf(w, "Referências totais\t%s\n", v.NumReferences)
		fmt.Fprintf(w, "Tamanho do embedding\t%s\n", v.EmbeddingSize)
		writeFields(w, v.Settings)

	case VerifyView:
		fmt.Fprintf(w, "%s\n%s\n\n", v.Title, v.PathLabel)
		fmt.Fprintf(w, "Distância coseno\t%s\n", v.Distance)
		writeGauge(w, v.Gauge)
		writeFields(w, v.Details)
		if v.BestReference != "" {
			fmt.Fprintf(w, "Melhor referência\t%s\n", v.BestReference)
		}

	case IdentifyView:
		fmt.Fprintf(w, "%s\n%s\n", v.Title, v.Reason)
		fmt.Fprintf(w, "path: %s\n\n", v.Path)
		fmt.Fprintf(w, "best_user_id\t%s\n", v.BestUserID)
		writeFields(w, v.Summary)
		writeGauge(w, v.Gauge)
		writeFields(w, v.Details)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "#\tUSER_ID\tDISTANCE\tREF")
		for _, row := range v.Rows {
			if row.Empty {
				fmt.Fprintln(w, row.Message)
				continue
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", row.Rank, row.UserID, row.Distance, row.Ref)
		}

	default:
		return fmt.Errorf("unsupported view %T", view)
	}
	return w.Flush()
}

func writeFields(w io.Writer, fields []Field) {
	for _, f := range fields {
		fmt.Fprintf(w, "%s\t%s\n", f.Label, f.Value)
	}
}

func writeGauge(w io.Writer, g *GaugeView) {
	if g == nil {
		return
	}
	fmt.Fprintf(w, "Zona\t%s (%s)\n", g.ZoneLabel, g.Zone)
	fmt.Fprintf(w, "Posição\t%s\n", g.Value)
	fmt.Fprintf(w, "Limiares\t%s\n", strings.Join(g.Legend, "  "))
}
