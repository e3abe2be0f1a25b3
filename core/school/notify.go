package school

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/gestiabsences/backend/core"
)

// display labels substituted when a referenced entity cannot be resolved
const (
	classNamePlaceholder   = "Inconnue"
	subjectNamePlaceholder = "Inconnue"
)

// notifyParent delivers the absence notification to the student's parent and
// reports whether the SMS dispatch succeeded. Failures are logged, never
// returned: notification is non-fatal to the absence record. A courtesy email
// copy goes out fire-and-forget when a parent email is on record.
func (svc *Service) notifyParent(ctx context.Context, abs Absence, student Student, className, subjectName string) bool {
	msg := FormatAbsenceMessage(student.FullName(), className, subjectName, abs.Date, abs.StartTime, abs.EndTime, abs.Reason)
	to := core.NormalizePhoneNumber(student.ParentPhone)

	sendCtx, cancel := context.WithTimeout(ctx, svc.smsTimeout())
	defer cancel()
	res := svc.smsSvc.Send(sendCtx, to, msg)
	if res.Success {
		svc.logger.Info(fmt.Sprintf("SMS envoyé avec succès à %s, ID: %s", to, res.MessageID))
	} else {
		svc.logger.Warn(fmt.Sprintf("Échec de l'envoi du SMS à %s", to), errors.New(res.Error))
	}

	if svc.mailSvc != nil && student.ParentEmail != "" {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:      []mail.Address{{Name: student.ParentName, Address: student.ParentEmail}},
			Subject: "Absence de " + student.FullName(),
			Body:    msg,
		})
	}

	return res.Success
}

func (svc *Service) smsTimeout() time.Duration {
	if svc.conf != nil && svc.conf.SMS.Timeout > 0 {
		return svc.conf.SMS.Timeout
	}
	return 10 * time.Second
}

// FormatAbsenceMessage builds the parent notification text: student, class and
// subject names, the localized date (dd/mm/yyyy) and the period truncated to
// hours and minutes, an optional reason clause, and the closing contact
// instruction.
func FormatAbsenceMessage(studentName, className, subjectName, date, startTime, endTime, reason string) string {
	msg := fmt.Sprintf(
		"GestiAbsences: Votre enfant %s de la classe %s était absent au cours de %s le %s de %s à %s.",
		studentName, className, subjectName, formatFrenchDate(date), formatTime(startTime), formatTime(endTime),
	)
	if reason != "" {
		msg += " Motif: " + reason + "."
	}
	msg += " Pour toute information, merci de contacter l'établissement."
	return msg
}

// formatFrenchDate renders an ISO date as dd/mm/yyyy; unparseable input is
// passed through as-is.
func formatFrenchDate(date string) string {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return d.Format("02/01/2006")
}

// formatTime truncates a wall-clock time to HH:MM.
func formatTime(t string) string {
	if len(t) > 5 {
		return t[:5]
	}
	return t
}
