package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BradenHooton/showroom/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHeuristic(t *testing.T) *AbuseHeuristic {
	t.Helper()
	rules, err := LoadAbuseRules("")
	require.NoError(t, err)
	return NewAbuseHeuristic(rules)
}

func validInquiry() SubmissionFields {
	return SubmissionFields{
		Kind:    models.SubmissionKindGeneral,
		Name:    "Jordan Buyer",
		Email:   "jordan@example.com",
		Subject: "Pricing question",
		Message: "Could you send pricing for the touring model?",
	}
}

func validDealership(volume string) SubmissionFields {
	return SubmissionFields{
		Kind:          models.SubmissionKindDealership,
		Name:          "Riley Dealer",
		Email:         "riley@northside.example",
		Company:       "Northside Motors",
		Message:       "We are interested in carrying your full line.",
		MonthlyVolume: volume,
	}
}

func TestEvaluateSubmission_HoneypotDiscards(t *testing.T) {
	h := newTestHeuristic(t)

	eval := h.EvaluateSubmission(validInquiry(), RecentActivity{}, "trap-value")
	assert.Equal(t, VerdictDiscard, eval.Verdict)

	// honeypot wins over invalid fields
	eval = h.EvaluateSubmission(SubmissionFields{}, RecentActivity{}, "x")
	assert.Equal(t, VerdictDiscard, eval.Verdict)

	eval = h.EvaluateSubmission(validInquiry(), RecentActivity{}, "   ")
	assert.Equal(t, VerdictAccept, eval.Verdict)
}

func TestEvaluateSubmission_Validation(t *testing.T) {
	h := newTestHeuristic(t)

	tests := []struct {
		name      string
		mutate    func(f *SubmissionFields)
		wantField string
	}{
		{name: "short name", mutate: func(f *SubmissionFields) { f.Name = "J" }, wantField: "name"},
		{name: "long name", mutate: func(f *SubmissionFields) { f.Name = string(make([]byte, 101)) }, wantField: "name"},
		{name: "missing email", mutate: func(f *SubmissionFields) { f.Email = "" }, wantField: "email"},
		{name: "bad email", mutate: func(f *SubmissionFields) { f.Email = "not-an-email" }, wantField: "email"},
		{name: "short message", mutate: func(f *SubmissionFields) { f.Message = "hi there" }, wantField: "message"},
		{name: "dealership contact", mutate: func(f *SubmissionFields) {
			f.Kind = models.SubmissionKindDealership
			f.Name = " "
		}, wantField: "contact_name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := validInquiry()
			tt.mutate(&fields)

			eval := h.EvaluateSubmission(fields, RecentActivity{}, "")
			assert.Equal(t, VerdictReject, eval.Verdict)
			require.NotEmpty(t, eval.FieldErrors)
			assert.Equal(t, tt.wantField, eval.FieldErrors[0].Field)
			assert.NotEmpty(t, eval.RejectionReason)
		})
	}
}

func TestEvaluateSubmission_SpamPatterns(t *testing.T) {
	h := newTestHeuristic(t)

	tests := []struct {
		name    string
		message string
	}{
		{name: "keyword", message: "Best casino bonuses for your customers today"},
		{name: "keyword any case", message: "We offer SEO Services at low rates"},
		{name: "url", message: "Please visit https://cheap.example for details"},
		{name: "www", message: "Find our offer at www.cheap.example today"},
		{name: "card number", message: "Charge it to 4111 1111 1111 1111 please"},
		{name: "card number dashed", message: "Card is 5500-0000-0000-0004 thanks"},
		{name: "card number unspaced", message: "Use 378282246310005 for the deposit"},
		{name: "uppercase run", message: "THISISVERYIMPORTANT please reply"},
		{name: "repeated chars", message: "Hello there!!!!! reply soon please"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := validInquiry()
			fields.Message = tt.message

			eval := h.EvaluateSubmission(fields, RecentActivity{}, "")
			assert.Equal(t, VerdictReject, eval.Verdict)
			assert.Empty(t, eval.FieldErrors)
			assert.Equal(t, spamRejectionReason, eval.RejectionReason)
		})
	}
}

func TestEvaluateSubmission_NumbersThatAreNotCards(t *testing.T) {
	h := newTestHeuristic(t)

	messages := []string{
		"Please call me back at +977 9812345678 about pricing.",
		"Reach me on +44 20 7946 0958 or 00 1 415 555 0132 after six.",
		"Our order reference is 4111 1111 1111 1112, please check it.",
		"Stock number 4915112345678901 looked interesting to us.",
	}

	for _, message := range messages {
		t.Run(message, func(t *testing.T) {
			fields := validInquiry()
			fields.Message = message

			eval := h.EvaluateSubmission(fields, RecentActivity{}, "")
			assert.Equal(t, VerdictAccept, eval.Verdict)
		})
	}
}

func TestLuhnValid(t *testing.T) {
	assert.True(t, luhnValid("4111 1111 1111 1111"))
	assert.True(t, luhnValid("378282246310005"))
	assert.False(t, luhnValid("4111 1111 1111 1112"))
	assert.False(t, luhnValid("9779812345678"))
}

func TestEvaluateSubmission_SpamInIdentity(t *testing.T) {
	h := newTestHeuristic(t)

	fields := validInquiry()
	fields.Name = "Bitcoin Winner"
	eval := h.EvaluateSubmission(fields, RecentActivity{}, "")
	assert.Equal(t, VerdictReject, eval.Verdict)
}

func TestEvaluateSubmission_Flags(t *testing.T) {
	h := newTestHeuristic(t)

	tests := []struct {
		name     string
		activity RecentActivity
		want     []models.SubmissionFlag
	}{
		{name: "quiet", activity: RecentActivity{}, want: []models.SubmissionFlag{}},
		{name: "four from ip", activity: RecentActivity{SameIPLastHour: 4}, want: []models.SubmissionFlag{}},
		{name: "five from ip", activity: RecentActivity{SameIPLastHour: 5}, want: []models.SubmissionFlag{models.FlagHighFrequency}},
		{name: "duplicate email", activity: RecentActivity{SameEmailLastDay: 1}, want: []models.SubmissionFlag{models.FlagDuplicateEmail}},
		{name: "duplicate content", activity: RecentActivity{SameContentLastDay: 2}, want: []models.SubmissionFlag{models.FlagDuplicateContent}},
		{
			name:     "all",
			activity: RecentActivity{SameIPLastHour: 9, SameEmailLastDay: 1, SameContentLastDay: 1},
			want:     []models.SubmissionFlag{models.FlagHighFrequency, models.FlagDuplicateEmail, models.FlagDuplicateContent},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := h.EvaluateSubmission(validInquiry(), tt.activity, "")
			require.Equal(t, VerdictAccept, eval.Verdict)
			assert.Equal(t, tt.want, eval.Flags)
		})
	}
}

func TestEvaluateSubmission_GeneralPriority(t *testing.T) {
	h := newTestHeuristic(t)

	tests := []struct {
		subject string
		want    models.Priority
	}{
		{subject: "URGENT: pricing", want: models.PriorityUrgent},
		{subject: "Need a quote asap", want: models.PriorityUrgent},
		{subject: "Partnership opportunity", want: models.PriorityHigh},
		{subject: "Bulk order and emergency delivery", want: models.PriorityUrgent},
		{subject: "Technical question", want: models.PriorityHigh},
		{subject: "Need pricing immediately", want: models.PriorityUrgent},
		{subject: "Urgently needed quote", want: models.PriorityUrgent},
		{subject: "Critically low stock", want: models.PriorityUrgent},
		{subject: "Partnerships team", want: models.PriorityHigh},
		{subject: "Technically a fleet order", want: models.PriorityHigh},
		{subject: "Hello", want: models.PriorityMedium},
		{subject: "", want: models.PriorityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			fields := validInquiry()
			fields.Subject = tt.subject

			eval := h.EvaluateSubmission(fields, RecentActivity{}, "")
			require.Equal(t, VerdictAccept, eval.Verdict)
			assert.Equal(t, tt.want, eval.Priority)
		})
	}
}

func TestEvaluateSubmission_DealershipPriority(t *testing.T) {
	h := newTestHeuristic(t)

	tests := []struct {
		volume string
		want   models.Priority
	}{
		{volume: "25000", want: models.PriorityUrgent},
		{volume: "20,000", want: models.PriorityUrgent},
		{volume: "5000+ units", want: models.PriorityHigh},
		{volume: "1000", want: models.PriorityMedium},
		{volume: "about a hundred", want: models.PriorityMedium},
		{volume: "", want: models.PriorityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.volume, func(t *testing.T) {
			eval := h.EvaluateSubmission(validDealership(tt.volume), RecentActivity{}, "")
			require.Equal(t, VerdictAccept, eval.Verdict)
			assert.Equal(t, tt.want, eval.Priority)
		})
	}
}

func TestEvaluateSubmission_PoliciesDoNotMix(t *testing.T) {
	h := newTestHeuristic(t)

	dealer := validDealership("100")
	dealer.Subject = "URGENT: emergency"
	assert.Equal(t, models.PriorityMedium, h.EvaluateSubmission(dealer, RecentActivity{}, "").Priority)

	general := validInquiry()
	general.MonthlyVolume = "50000"
	assert.Equal(t, models.PriorityMedium, h.EvaluateSubmission(general, RecentActivity{}, "").Priority)
}

func TestParseMonthlyVolume(t *testing.T) {
	n, ok := ParseMonthlyVolume(" 12 500 ")
	assert.True(t, ok)
	assert.Equal(t, 12500, n)

	_, ok = ParseMonthlyVolume("n/a")
	assert.False(t, ok)
}

func TestLoadAbuseRules_FileOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
spam_keywords: [hovercraft]
priority:
  urgent_keywords: [fire]
  high_keywords: [soon]
  dealership_urgent_volume: 100
  dealership_high_volume: 10
high_frequency_threshold: 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	rules, err := LoadAbuseRules(path)
	require.NoError(t, err)
	h := NewAbuseHeuristic(rules)

	fields := validInquiry()
	fields.Message = "My hovercraft is full of questions"
	assert.Equal(t, VerdictReject, h.EvaluateSubmission(fields, RecentActivity{}, "").Verdict)

	assert.Equal(t, models.PriorityUrgent, h.EvaluateSubmission(validDealership("150"), RecentActivity{}, "").Priority)
	assert.Equal(t, []models.SubmissionFlag{models.FlagHighFrequency},
		h.EvaluateSubmission(validInquiry(), RecentActivity{SameIPLastHour: 2}, "").Flags)
}

func TestParseAbuseRules_Invalid(t *testing.T) {
	_, err := ParseAbuseRules([]byte("high_frequency_threshold: 0"))
	assert.Error(t, err)

	_, err = ParseAbuseRules([]byte("spam_keywords: ["))
	assert.Error(t, err)

	_, err = LoadAbuseRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
