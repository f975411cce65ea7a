package faceapi

// Operation names a remote call.
type Operation string

const (
	OpHealth   Operation = "health"
	OpEnroll   Operation = "enroll"
	OpVerify   Operation = "verify"
	OpIdentify Operation = "identify"
)

// Decision paths reported by the service.
const (
	PathFastOnly          = "fast_only"
	PathFallbackConfirmed = "fast+fallback_confirmed"
	PathRejected          = "rejected"
	PathNoFace            = "no_face"
)

// Decision reasons reported by the service.
const (
	ReasonSuperStrictPass        = "super_strict_pass"
	ReasonFallbackConfirmed      = "fallback_confirmed"
	ReasonAboveStrict            = "above_strict"
	ReasonFallbackFailed         = "fallback_failed"
	ReasonNoFaceDetectedFast     = "no_face_detected_fast"
	ReasonNoFaceDetectedFallback = "no_face_detected_fallback"
)

// Result is implemented by the three response shapes. The concrete type is
// decided by the operation that produced it.
type Result interface {
	Operation() Operation
}

// EnrollResult is returned by POST /face/enroll/{user_id}.
type EnrollResult struct {
	UserID           string `json:"user_id"`
	NumReferences    int    `json:"num_references"`
	EmbeddingSize    int    `json:"embedding_size"`
	Model            string `json:"model"`
	Metric           string `json:"metric"`
	DetectorFast     string `json:"detector_fast"`
	DetectorFallback string `json:"detector_fallback"`
}

func (EnrollResult) Operation() Operation { return OpEnroll }

// VerifyResult is returned by POST /face/verify/{user_id}.
// Optional scalars stay nil when the service omits them.
type VerifyResult struct {
	Verified             bool     `json:"verified"`
	Distance             *float64 `json:"distance"`
	Threshold            *float64 `json:"threshold"`
	ThresholdSuperStrict *float64 `json:"threshold_super_strict"`
	ThresholdLoose       *float64 `json:"threshold_loose"`
	Reason               string   `json:"reason"`
	Path                 string   `json:"path"`
	Model                string   `json:"model"`
	Metric               string   `json:"metric"`
	BestReferenceIndex   *int     `json:"best_reference_index"`
}

func (VerifyResult) Operation() Operation { return OpVerify }

// Candidate is one entry of an identification ranking.
type Candidate struct {
	UserID   string   `json:"user_id"`
	Distance *float64 `json:"distance"`
	RefIndex *int     `json:"ref_index"`
}

// IdentifyResult is returned by POST /face/identify.
// TopK is ordered by ascending distance and may be empty.
type IdentifyResult struct {
	Identified           bool        `json:"identified"`
	BestUserID           *string     `json:"best_user_id"`
	Distance             *float64    `json:"distance"`
	Threshold            *float64    `json:"threshold"`
	ThresholdSuperStrict *float64    `json:"threshold_super_strict"`
	ThresholdLoose       *float64    `json:"threshold_loose"`
	Reason               string      `json:"reason"`
	Path                 string      `json:"path"`
	Model                string      `json:"model"`
	Metric               string      `json:"metric"`
	DetectorFast         string      `json:"detector_fast"`
	DetectorFallback     string      `json:"detector_fallback"`
	TopK                 []Candidate `json:"top_k"`
}

func (IdentifyResult) Operation() Operation { return OpIdentify }

// Health is the liveness view of GET /health.
type Health struct {
	Online  bool
	Payload map[string]any
}
