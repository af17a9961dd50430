// Package contact handles contact form submissions: validation, an append-only JSON lines log and an
// email notification.
package contact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/errors"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/monitoring"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/types"
)

const (
	SubmissionsFile = "contact_submissions.jsonl"
	ThankYouMessage = "Thank you for your message! We'll get back to you within 24 hours."
)

// Mailer delivers a notification and reports whether it was sent.
type Mailer interface {
	Send(to, subject, body string) bool
}

// Receipt is returned to the submitter.
type Receipt struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	SubmissionID string `json:"submission_id"`
}

// Submission is one line of the submissions log.
type Submission struct {
	ID          string    `json:"id"`
	SubmittedAt time.Time `json:"submitted_at"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	Company     string    `json:"company,omitempty"`
	Subject     string    `json:"subject"`
	Message     string    `json:"message"`
	EmailSent   bool      `json:"email_sent"`
}

// Service processes submissions.
type Service struct {
	dataDir   string
	recipient string
	mailer    Mailer
	logger    *monitoring.Logger

	mu    sync.Mutex
	now   func() time.Time
	newID func() string
}

// NewService creates a Service that logs to dataDir and notifies recipient through mailer. A nil
// mailer skips notification.
func NewService(dataDir, recipient string, mailer Mailer, logger *monitoring.Logger) *Service {
	if logger == nil {
		logger = monitoring.NewLogger("info")
	}
	return &Service{
		dataDir:   dataDir,
		recipient: recipient,
		mailer:    mailer,
		logger:    logger,
		now:       time.Now,
		newID:     func() string { return "contact_" + uuid.NewString() },
	}
}

// Validate checks required fields and the email shape.
func Validate(req types.ContactRequest) error {
	problems := map[string]string{}
	for field, value := range map[string]string{
		"firstName": req.FirstName,
		"lastName":  req.LastName,
		"email":     req.Email,
		"subject":   req.Subject,
		"message":   req.Message,
	} {
		if strings.TrimSpace(value) == "" {
			problems[field] = "is required"
		}
	}
	if len(problems) > 0 {
		return errors.NewValidationErrorWithMap(problems)
	}
	if !validEmail(req.Email) {
		return errors.NewValidationError("Please provide a valid email address", "email")
	}
	return nil
}

// validEmail requires text on both sides of the last @, a dot in the domain and no whitespace.
func validEmail(email string) bool {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " \r\n") {
		return false
	}
	return strings.Contains(email[at+1:], ".")
}

// Submit validates req, notifies the recipient and logs the submission. Logging and mail failures
// never fail the submission.
func (s *Service) Submit(req types.ContactRequest) (Receipt, error) {
	if err := Validate(req); err != nil {
		return Receipt{}, err
	}

	sub := Submission{
		ID:          s.newID(),
		SubmittedAt: s.now().UTC(),
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		Email:       strings.TrimSpace(req.Email),
		Company:     strings.TrimSpace(req.Company),
		Subject:     strings.TrimSpace(req.Subject),
		Message:     req.Message,
	}

	if s.mailer != nil && s.recipient != "" {
		sub.EmailSent = s.mailer.Send(s.recipient, "Contact Form: "+sub.Subject, notificationBody(sub))
	}
	if !sub.EmailSent {
		s.logger.Info("contact notification not sent, submission logged only", "submission_id", sub.ID)
	}

	if err := s.append(sub); err != nil {
		s.logger.Warn("failed to log contact submission", "submission_id", sub.ID, "error", err)
	}

	return Receipt{Success: true, Message: ThankYouMessage, SubmissionID: sub.ID}, nil
}

func (s *Service) append(sub Submission) error {
	line, err := json.Marshal(sub)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(s.dataDir, SubmissionsFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer errors.SafeClose(f, SubmissionsFile)

	_, err = f.Write(append(line, '\n'))
	return err
}

func notificationBody(sub Submission) string {
	company := sub.Company
	if company == "" {
		company = "Not provided"
	}
	return fmt.Sprintf(`New contact form submission received:

Name: %s %s
Email: %s
Company: %s
Subject: %s

Message:
%s

---
This message was sent through the website contact form.
`, sub.FirstName, sub.LastName, sub.Email, company, sub.Subject, sub.Message)
}
