package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/showroom/internal/config"
	"github.com/BradenHooton/showroom/internal/models"
	pkglogger "github.com/BradenHooton/showroom/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SubmissionNotice is what the sales inbox is told about a new submission.
type SubmissionNotice struct {
	Kind     models.SubmissionKind
	ID       string
	Priority models.Priority
	Flags    []models.SubmissionFlag
	Name     string
	Email    string
	Subject  string
	Message  string
}

// Notifier announces accepted submissions.
type Notifier interface {
	NotifyNewSubmission(ctx context.Context, notice SubmissionNotice) error
}

type sesSender interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESNotifier emails the sales inbox through AWS SES.
type SESNotifier struct {
	client      sesSender
	fromAddress string
	toAddress   string
	timeout     time.Duration
	logger      *slog.Logger
}

func NewSESNotifier(ctx context.Context, cfg *config.EmailConfig, logger *slog.Logger) (*SESNotifier, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return newSESNotifier(ses.NewFromConfig(awsCfg), cfg, logger), nil
}

func newSESNotifier(client sesSender, cfg *config.EmailConfig, logger *slog.Logger) *SESNotifier {
	return &SESNotifier{
		client:      client,
		fromAddress: cfg.FromAddress,
		toAddress:   cfg.NotifyAddress,
		timeout:     cfg.SendTimeout,
		logger:      logger,
	}
}

func (n *SESNotifier) NotifyNewSubmission(ctx context.Context, notice SubmissionNotice) error {
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{n.toAddress},
		},
		ReplyToAddresses: []string{notice.Email},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(noticeSubject(notice)),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(noticeBody(notice)),
				},
			},
		},
	}

	result, err := n.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send notification email: %w", err)
	}

	n.logger.InfoContext(ctx, "submission notification sent",
		slog.String("id", notice.ID),
		slog.String("message_id", aws.ToString(result.MessageId)),
	)
	return nil
}

func noticeSubject(notice SubmissionNotice) string {
	label := "New inquiry"
	if notice.Kind == models.SubmissionKindDealership {
		label = "New dealership inquiry"
	}
	return fmt.Sprintf("[%s] %s: %s", strings.ToUpper(string(notice.Priority)), label, notice.Subject)
}

func noticeBody(notice SubmissionNotice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\n", notice.Name, notice.Email)
	fmt.Fprintf(&b, "Priority: %s\n", notice.Priority)
	if len(notice.Flags) > 0 {
		flags := make([]string, len(notice.Flags))
		for i, f := range notice.Flags {
			flags[i] = string(f)
		}
		fmt.Fprintf(&b, "Flags: %s\n", strings.Join(flags, ", "))
	}
	fmt.Fprintf(&b, "Reference: %s\n\n", notice.ID)
	b.WriteString(notice.Message)
	b.WriteString("\n")
	return b.String()
}

// LogNotifier writes notices to the log. It is used when SES is not configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyNewSubmission(ctx context.Context, notice SubmissionNotice) error {
	n.logger.InfoContext(ctx, "new submission",
		slog.String("kind", string(notice.Kind)),
		slog.String("id", notice.ID),
		slog.String("priority", string(notice.Priority)),
		pkglogger.EmailAttr(notice.Email),
	)
	return nil
}
