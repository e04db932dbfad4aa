package chore

import (
	"mime"
	"strings"

	"github.com/dukerupert/marinda/internal/apperr"
	"github.com/dukerupert/marinda/internal/model"
)

// MaxProofs bounds the attachments on one submission.
const MaxProofs = 10

// validateProofs checks presence and that each declared MIME type agrees
// with its kind. Media content is never inspected.
func validateProofs(proofs []model.Proof) ([]model.Proof, error) {
	if len(proofs) == 0 {
		return nil, apperr.New(apperr.KindMissingProof, "at least one photo or video is required")
	}
	if len(proofs) > MaxProofs {
		return nil, apperr.New(apperr.KindInvalidInput, "at most %d proofs may be attached", MaxProofs)
	}

	out := make([]model.Proof, 0, len(proofs))
	for i, p := range proofs {
		p.URI = strings.TrimSpace(p.URI)
		if p.URI == "" {
			return nil, apperr.New(apperr.KindMissingProof, "proof %d has no uri", i)
		}
		if p.Kind != model.ProofImage && p.Kind != model.ProofVideo {
			return nil, apperr.New(apperr.KindInvalidInput, "proof %d: kind must be image or video", i)
		}
		if p.Type != "" {
			mediaType, _, err := mime.ParseMediaType(p.Type)
			if err != nil {
				return nil, apperr.New(apperr.KindInvalidInput, "proof %d: invalid type %q", i, p.Type)
			}
			if !strings.HasPrefix(mediaType, string(p.Kind)+"/") {
				return nil, apperr.New(apperr.KindInvalidInput, "proof %d: type %s does not match kind %s", i, mediaType, p.Kind)
			}
			p.Type = mediaType
		}
		out = append(out, p)
	}
	return out, nil
}
