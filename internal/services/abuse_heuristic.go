package services

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/BradenHooton/showroom/internal/models"
	"github.com/go-playground/validator/v10"
)

type Verdict int

const (
	VerdictAccept Verdict = iota
	VerdictDiscard
	VerdictReject
)

func (v Verdict) String() string {
	switch v {
	case VerdictAccept:
		return "accept"
	case VerdictDiscard:
		return "discard"
	case VerdictReject:
		return "reject"
	default:
		return "unknown"
	}
}

const spamRejectionReason = "submission could not be accepted"

const repeatedCharLimit = 5

var (
	urlPattern       = regexp.MustCompile(`(?i)https?://|www\.`)
	cardPattern      = regexp.MustCompile(`\b(?:\d{4}[ -]?){3}\d{3,4}\b`)
	uppercasePattern = regexp.MustCompile(`[A-Z]{10,}`)
	volumeDigits     = regexp.MustCompile(`^\d+`)
)

// SubmissionFields are the form fields the heuristic looks at. Name is the
// contact name for both inquiry kinds.
type SubmissionFields struct {
	Kind          models.SubmissionKind
	Name          string
	Email         string
	Company       string
	Subject       string
	Message       string
	MonthlyVolume string
}

// RecentActivity holds store counts gathered by the caller before evaluation.
type RecentActivity struct {
	SameIPLastHour     int
	SameEmailLastDay   int
	SameContentLastDay int
}

type Evaluation struct {
	Verdict         Verdict
	Priority        models.Priority
	Flags           []models.SubmissionFlag
	RejectionReason string
	FieldErrors     []*models.FieldError
}

type identityInput struct {
	Name    string `json:"name" validate:"min=2,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"min=10,max=5000"`
}

var identityMessages = map[string]string{
	"name":    "name must be between 2 and 100 characters",
	"email":   "a valid email address is required",
	"message": "message must be between 10 and 5000 characters",
}

// AbuseHeuristic screens public submissions. It performs no I/O.
type AbuseHeuristic struct {
	rules    *AbuseRules
	spam     *regexp.Regexp
	urgent   *regexp.Regexp
	high     *regexp.Regexp
	validate *validator.Validate
}

func NewAbuseHeuristic(rules *AbuseRules) *AbuseHeuristic {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)

	return &AbuseHeuristic{
		rules:    rules,
		spam:     keywordPattern(rules.SpamKeywords),
		urgent:   containsPattern(rules.Priority.UrgentKeywords),
		high:     containsPattern(rules.Priority.HighKeywords),
		validate: v,
	}
}

// EvaluateSubmission runs the honeypot, validation, spam, flag and priority
// steps in that order. The first two verdict-changing steps short-circuit.
func (h *AbuseHeuristic) EvaluateSubmission(fields SubmissionFields, activity RecentActivity, honeypot string) Evaluation {
	if strings.TrimSpace(honeypot) != "" {
		return Evaluation{Verdict: VerdictDiscard}
	}

	if errs := h.validateIdentity(fields); len(errs) > 0 {
		return Evaluation{
			Verdict:         VerdictReject,
			RejectionReason: errs[0].Message,
			FieldErrors:     errs,
		}
	}

	if h.looksLikeSpam(fields) {
		return Evaluation{Verdict: VerdictReject, RejectionReason: spamRejectionReason}
	}

	return Evaluation{
		Verdict:  VerdictAccept,
		Priority: h.priority(fields),
		Flags:    h.flags(activity),
	}
}

func (h *AbuseHeuristic) validateIdentity(fields SubmissionFields) []*models.FieldError {
	input := identityInput{
		Name:    strings.TrimSpace(fields.Name),
		Email:   strings.TrimSpace(fields.Email),
		Message: strings.TrimSpace(fields.Message),
	}

	err := h.validate.Struct(input)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []*models.FieldError{{Field: "form", Message: err.Error()}}
	}

	out := make([]*models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if field == "name" && fields.Kind == models.SubmissionKindDealership {
			out = append(out, &models.FieldError{Field: "contact_name", Message: "contact name must be between 2 and 100 characters"})
			continue
		}
		out = append(out, &models.FieldError{Field: field, Message: identityMessages[field]})
	}
	return out
}

func (h *AbuseHeuristic) looksLikeSpam(fields SubmissionFields) bool {
	text := strings.Join([]string{fields.Name, fields.Email, fields.Company, fields.Subject, fields.Message}, " ")

	if h.spam != nil && h.spam.MatchString(text) {
		return true
	}
	if urlPattern.MatchString(text) || containsCardNumber(text) || uppercasePattern.MatchString(text) {
		return true
	}
	return hasRepeatedRun(text, repeatedCharLimit)
}

// containsCardNumber reports whether text holds a 15 or 16 digit number in
// four-digit groups that passes the Luhn check. E.164 phone numbers have at
// most 15 digits and rarely pass the checksum.
func containsCardNumber(text string) bool {
	for _, candidate := range cardPattern.FindAllString(text, -1) {
		if luhnValid(candidate) {
			return true
		}
	}
	return false
}

func luhnValid(candidate string) bool {
	sum, n := 0, 0
	for i := len(candidate) - 1; i >= 0; i-- {
		c := candidate[i]
		if c < '0' || c > '9' {
			continue
		}
		d := int(c - '0')
		if n%2 == 1 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		n++
	}
	return n >= 15 && sum%10 == 0
}

// hasRepeatedRun reports whether text holds n or more consecutive identical
// non-space runes.
func hasRepeatedRun(text string, n int) bool {
	var prev rune
	run := 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			run = 0
			continue
		}
		if r == prev && run > 0 {
			run++
		} else {
			run = 1
		}
		prev = r
		if run >= n {
			return true
		}
	}
	return false
}

func (h *AbuseHeuristic) flags(activity RecentActivity) []models.SubmissionFlag {
	flags := make([]models.SubmissionFlag, 0, 3)
	if activity.SameIPLastHour >= h.rules.HighFrequencyThreshold {
		flags = append(flags, models.FlagHighFrequency)
	}
	if activity.SameEmailLastDay > 0 {
		flags = append(flags, models.FlagDuplicateEmail)
	}
	if activity.SameContentLastDay > 0 {
		flags = append(flags, models.FlagDuplicateContent)
	}
	return flags
}

func (h *AbuseHeuristic) priority(fields SubmissionFields) models.Priority {
	switch fields.Kind {
	case models.SubmissionKindDealership:
		volume, ok := ParseMonthlyVolume(fields.MonthlyVolume)
		switch {
		case !ok:
			return models.PriorityMedium
		case volume >= h.rules.Priority.DealershipUrgentVolume:
			return models.PriorityUrgent
		case volume >= h.rules.Priority.DealershipHighVolume:
			return models.PriorityHigh
		default:
			return models.PriorityMedium
		}
	default:
		switch {
		case h.urgent.MatchString(fields.Subject):
			return models.PriorityUrgent
		case h.high.MatchString(fields.Subject):
			return models.PriorityHigh
		default:
			return models.PriorityMedium
		}
	}
}

// ParseMonthlyVolume reads the leading unit count of a free-text volume such
// as "25,000" or "5000+ units".
func ParseMonthlyVolume(raw string) (int, bool) {
	cleaned := strings.NewReplacer(",", "", " ", "", "_", "").Replace(strings.TrimSpace(raw))
	digits := volumeDigits.FindString(cleaned)
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}
