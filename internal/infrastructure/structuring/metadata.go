package structuring

import (
	"regexp"
	"strings"

	"github.com/policyscope/policyscope/internal/core/domain"
)

var (
	insurerLabel  = regexp.MustCompile(`(?:שם\s+המבטח|חברת\s+הביטוח|המבטחת?)\s*[:\-]\s*([^\n,]+)`)
	policyNumber  = regexp.MustCompile(`(?:מספר\s+פוליסה|פוליסה\s+מס'?)\s*[:\-]?\s*([A-Za-z0-9][A-Za-z0-9/\-]*)`)
	validityRange = regexp.MustCompile(`(?:תקופת\s+הביטוח|בתוקף)\s*(?:מיום|מ-|:)?\s*(\d{1,2}[./]\d{1,2}[./]\d{2,4})\s*(?:עד|ועד)\s*(?:יום|ליום)?\s*(\d{1,2}[./]\d{1,2}[./]\d{2,4})`)
)

// Well-known Israeli insurers, matched literally when no labeled field
// names the company.
var knownInsurers = []string{
	"הראל",
	"כלל ביטוח",
	"מגדל",
	"הפניקס",
	"מנורה מבטחים",
	"איילון",
}

// ParseMetadata pulls identifying fields out of policy text. Every
// field is best-effort; absence is not an error.
func ParseMetadata(text string) domain.PolicyMetadata {
	var meta domain.PolicyMetadata

	if m := insurerLabel.FindStringSubmatch(text); m != nil {
		meta.Insurer = strings.TrimSpace(m[1])
	} else {
		for _, name := range knownInsurers {
			if strings.Contains(text, name) {
				meta.Insurer = name
				break
			}
		}
	}

	if m := policyNumber.FindStringSubmatch(text); m != nil {
		meta.PolicyNumber = m[1]
	}

	if m := validityRange.FindStringSubmatch(text); m != nil {
		meta.ValidFrom = m[1]
		meta.ValidTo = m[2]
	}
	return meta
}

func (e *Extractor) ParseMetadata(text string) domain.PolicyMetadata {
	return ParseMetadata(text)
}
