package vision

import (
	"encoding/json"
	"strings"

	"github.com/bagel786/pregrader/internal/detection"
	"github.com/bagel786/pregrader/internal/imaging"
)

// modelReply is the JSON contract the prompt demands.
type modelReply struct {
	CardDetected bool                  `json:"card_detected"`
	Corners      map[string][2]float64 `json:"corners"`
	Confidence   float64               `json:"confidence"`
	Quality      *struct {
		Lighting   string `json:"lighting"`
		Blur       string `json:"blur"`
		Angle      string `json:"angle"`
		Background string `json:"background"`
	} `json:"quality_assessment"`
}

// parseDetection validates a model reply into a detection result.
//
// Models wrap JSON in markdown fences or chatter despite the prompt, so the
// text is trimmed down to its outermost JSON object first. Every reported
// corner must land inside the image; a reply with card_detected true but
// missing or out-of-range corners is rejected wholesale. Confidence is
// clamped to [0,1].
func parseDetection(text string, width, height int) (detection.Result, bool) {
	payload := extractJSON(text)
	if payload == "" {
		return detection.Result{}, false
	}

	var reply modelReply
	if err := json.Unmarshal([]byte(payload), &reply); err != nil {
		return detection.Result{}, false
	}
	if !reply.CardDetected {
		return detection.Result{}, false
	}

	corners := [4]imaging.Point{}
	names := [4]string{"top_left", "top_right", "bottom_right", "bottom_left"}
	for i, name := range names {
		xy, ok := reply.Corners[name]
		if !ok {
			return detection.Result{}, false
		}
		if xy[0] < 0 || xy[0] >= float64(width) || xy[1] < 0 || xy[1] >= float64(height) {
			return detection.Result{}, false
		}
		corners[i] = imaging.Point{X: xy[0], Y: xy[1]}
	}

	quad := imaging.OrderCorners(corners)
	if quad.Area() <= 0 {
		return detection.Result{}, false
	}

	conf := reply.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}

	result := detection.Result{
		Quad:       &quad,
		Confidence: conf,
		Method:     detection.MethodSlowAI,
	}
	if reply.Quality != nil {
		result.Quality = &detection.QualityAssessment{
			Lighting:   reply.Quality.Lighting,
			Blur:       reply.Quality.Blur,
			Angle:      reply.Quality.Angle,
			Background: reply.Quality.Background,
		}
	}
	return result, true
}

// extractJSON strips markdown fences and surrounding prose, returning the
// outermost {...} object or "" when none exists.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if i := strings.LastIndex(text, "```"); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
