// Package presenter turns service results into flat, fully populated view
// models. Every field is a display string; nothing here can fail on a
// missing value.
package presenter

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/kozaktomas/facegate/internal/decision"
	"github.com/kozaktomas/facegate/internal/faceapi"
)

// View is one of EnrollView, VerifyView or IdentifyView.
type View interface {
	Operation() faceapi.Operation
}

// Field is one labeled value.
type Field struct {
	Label string
	Value string
	Mono  bool
}

// GaugeView is the distance bar: marker positions as CSS percentages plus
// the zone used for styling.
type GaugeView struct {
	Zone        decision.Zone
	ZoneLabel   string
	Tone        string
	Value       string
	SuperStrict string
	Strict      string
	Loose       string
	Legend      []string
}

func newGaugeView(distance *float64, t decision.Thresholds) *GaugeView {
	if distance == nil {
		return nil
	}
	g := decision.NewGauge(*distance, t)
	return &GaugeView{
		Zone:        g.Zone,
		ZoneLabel:   g.Zone.Label(),
		Tone:        g.Zone.Tone(),
		Value:       formatPercent(g.Value),
		SuperStrict: formatPercent(g.SuperStrict),
		Strict:      formatPercent(g.Strict),
		Loose:       formatPercent(g.Loose),
		Legend: []string{
			"Super ≤" + formatThreshold(t.SuperStrict),
			"Estrito ≤" + formatThreshold(t.Strict),
			"Loose ≤" + formatThreshold(t.Loose),
		},
	}
}

type EnrollView struct {
	Title         string
	Subtitle      string
	UserID        string
	NumReferences string
	EmbeddingSize string
	Settings      []Field
}

func (EnrollView) Operation() faceapi.Operation { return faceapi.OpEnroll }

type VerifyView struct {
	Verified      bool
	Title         string
	Tone          string
	PathLabel     string
	Distance      string
	Gauge         *GaugeView
	Details       []Field
	BestReference string // empty when the service did not report one
}

func (VerifyView) Operation() faceapi.Operation { return faceapi.OpVerify }

// CandidateRow is one ranking row. An Empty row carries only Message.
type CandidateRow struct {
	Rank     int
	UserID   string
	Distance string
	Ref      string
	Empty    bool
	Message  string
}

type IdentifyView struct {
	Identified bool
	Title      string
	Tone       string
	BestUserID string
	Reason     string
	Path       string
	PathLabel  string
	Gauge      *GaugeView
	Summary    []Field
	Details    []Field
	Rows       []CandidateRow
}

func (IdentifyView) Operation() faceapi.Operation { return faceapi.OpIdentify }

// NoCandidatesMessage fills the single row of an empty ranking.
const NoCandidatesMessage = "Nenhum candidato retornado."

// Present builds the view for a result. It returns nil for nil results or
// result types it does not know.
func Present(result faceapi.Result) View {
	switch r := result.(type) {
	case *faceapi.EnrollResult:
		if r == nil {
			return nil
		}
		return PresentEnroll(r)
	case *faceapi.VerifyResult:
		if r == nil {
			return nil
		}
		return PresentVerify(r)
	case *faceapi.IdentifyResult:
		if r == nil {
			return nil
		}
		return PresentIdentify(r)
	default:
		return nil
	}
}

func PresentEnroll(r *faceapi.EnrollResult) EnrollView {
	return EnrollView{
		Title:         "Cadastro Realizado",
		Subtitle:      "Embedding de referência salvo com sucesso",
		UserID:        orPlaceholder(r.UserID),
		NumReferences: strconv.Itoa(r.NumReferences),
		EmbeddingSize: strconv.Itoa(r.EmbeddingSize) + "D",
		Settings: []Field{
			{Label: "Modelo", Value: orPlaceholder(r.Model), Mono: true},
			{Label: "Métrica", Value: orPlaceholder(r.Metric), Mono: true},
			{Label: "Detector rápido", Value: orPlaceholder(r.DetectorFast), Mono: true},
			{Label: "Detector fallback", Value: orPlaceholder(r.DetectorFallback), Mono: true},
		},
	}
}

func PresentVerify(r *faceapi.VerifyResult) VerifyView {
	v := VerifyView{
		Verified:  r.Verified,
		Title:     "Verificação Falhou",
		Tone:      "danger",
		PathLabel: PathLabel(r.Path),
		Distance:  FormatDistance(r.Distance),
		Gauge:     newGaugeView(r.Distance, decision.Resolve(r.ThresholdSuperStrict, r.Threshold, r.ThresholdLoose)),
	}
	if r.Verified {
		v.Title = "Identidade Confirmada"
		v.Tone = "accent"
	}

	metric := r.Metric
	if metric == "" {
		metric = "cosine"
	}
	v.Details = []Field{
		{Label: "Motivo", Value: orPlaceholder(ReasonLabel(r.Reason))},
		{Label: "Caminho", Value: orPlaceholder(r.Path), Mono: true},
		{Label: "Modelo", Value: orPlaceholder(r.Model), Mono: true},
		{Label: "Métrica", Value: metric, Mono: true},
	}
	if r.BestReferenceIndex != nil {
		v.BestReference = fmt.Sprintf("Ref #%d", *r.BestReferenceIndex)
	}
	return v
}

func PresentIdentify(r *faceapi.IdentifyResult) IdentifyView {
	v := IdentifyView{
		Identified: r.Identified,
		Title:      "Resultado: NÃO IDENTIFICADO",
		Tone:       "danger",
		BestUserID: Placeholder,
		Reason:     orPlaceholder(ReasonLabel(r.Reason)),
		Path:       orPlaceholder(r.Path),
		PathLabel:  PathLabel(r.Path),
		Gauge:      newGaugeView(r.Distance, decision.Resolve(r.ThresholdSuperStrict, r.Threshold, r.ThresholdLoose)),
	}
	if r.Identified {
		v.Title = "Resultado: IDENTIFICADO"
		v.Tone = "accent"
	}
	if r.BestUserID != nil {
		v.BestUserID = orPlaceholder(*r.BestUserID)
	}

	v.Summary = []Field{
		{Label: "distance", Value: FormatDistance(r.Distance), Mono: true},
		{Label: "threshold", Value: FormatDistance(r.Threshold), Mono: true},
		{Label: "top_k", Value: strconv.Itoa(len(r.TopK)), Mono: true},
	}
	v.Details = []Field{
		{Label: "model", Value: orPlaceholder(r.Model), Mono: true},
		{Label: "metric", Value: orPlaceholder(r.Metric), Mono: true},
		{Label: "fast", Value: orPlaceholder(r.DetectorFast), Mono: true},
		{Label: "fallback", Value: orPlaceholder(r.DetectorFallback), Mono: true},
	}

	if len(r.TopK) == 0 {
		v.Rows = []CandidateRow{{Empty: true, Message: NoCandidatesMessage}}
		return v
	}
	v.Rows = make([]CandidateRow, 0, len(r.TopK))
	for i, c := range r.TopK {
		v.Rows = append(v.Rows, CandidateRow{
			Rank:     i + 1,
			UserID:   orPlaceholder(c.UserID),
			Distance: FormatDistance(c.Distance),
			Ref:      formatIndex(c.RefIndex),
		})
	}
	return v
}

// ErrorMessage is the single display string for a failed submission. A 404
// on verify means the user was never enrolled.
func ErrorMessage(op faceapi.Operation, userID string, err error) string {
	if err == nil {
		return ""
	}
	if op == faceapi.OpVerify && errors.Is(err, faceapi.ErrNotFound) {
		return fmt.Sprintf(`Usuário "%s" não encontrado. Faça o cadastro primeiro.`, userID)
	}
	return faceapi.Message(err)
}
