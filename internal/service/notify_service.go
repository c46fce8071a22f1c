package service

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"time"

	"trattoria/internal/db"
	"trattoria/internal/entities"
	"trattoria/internal/utils"
)

//go:embed templates/reservation_email.html
var templateFS embed.FS

type MessageKind string

const (
	MessageCreated   MessageKind = "created"
	MessageConfirmed MessageKind = "confirmed"
	MessageCancelled MessageKind = "cancelled"
	MessageReminder  MessageKind = "reminder"
)

// Notifier tells a customer about a change to their reservation.
type Notifier interface {
	Notify(ctx context.Context, res db.Reservation, kind MessageKind) error
}

type Mailer interface {
	SendEmail(ctx context.Context, toEmail, toName, subject, plainText, htmlBody string) error
}

type Texter interface {
	SendSMS(ctx context.Context, toNumber, body string) error
}

type phrases struct {
	subject      string // restaurant, status
	reminderSubj string // restaurant
	greeting     string // name
	statusLine   string // restaurant, status
	reminderLine string // restaurant, time
	closing      string
	sms          string // restaurant, code, status, date, time, guests
	reminderSMS  string // restaurant, time, guests
	dateLayout   string
	labels       entities.EmailLabels
}

var messages = map[string]phrases{
	"en": {
		subject:      "Your reservation at %s is %s",
		reminderSubj: "See you tomorrow at %s",
		greeting:     "Hello %s,",
		statusLine:   "Your reservation at %s is %s.",
		reminderLine: "A reminder that your table at %s is booked for tomorrow at %s.",
		closing:      "We look forward to welcoming you.",
		sms:          "%s: reservation %s is %s. %s at %s, %d guests.",
		reminderSMS:  "%s: see you tomorrow at %s, table for %d.",
		dateLayout:   "Monday, 2 January 2006",
		labels:       entities.EmailLabels{Code: "Reservation", Date: "Date", Time: "Time", Guests: "Guests", Status: "Status", Requests: "Requests"},
	},
	"es": {
		subject:      "Tu reserva en %s está %s",
		reminderSubj: "Te esperamos mañana en %s",
		greeting:     "Hola %s,",
		statusLine:   "Tu reserva en %s está %s.",
		reminderLine: "Te recordamos que tu mesa en %s está reservada para mañana a las %s.",
		closing:      "Te esperamos.",
		sms:          "%s: tu reserva %s está %s. %s a las %s, %d personas.",
		reminderSMS:  "%s: te esperamos mañana a las %s, mesa para %d.",
		dateLayout:   "02/01/2006",
		labels:       entities.EmailLabels{Code: "Reserva", Date: "Fecha", Time: "Hora", Guests: "Personas", Status: "Estado", Requests: "Peticiones"},
	},
	"it": {
		subject:      "La tua prenotazione da %s è %s",
		reminderSubj: "Ti aspettiamo domani da %s",
		greeting:     "Ciao %s,",
		statusLine:   "La tua prenotazione da %s è %s.",
		reminderLine: "Ti ricordiamo che il tuo tavolo da %s è prenotato per domani alle %s.",
		closing:      "Ti aspettiamo.",
		sms:          "%s: la prenotazione %s è %s. %s alle %s, %d persone.",
		reminderSMS:  "%s: ti aspettiamo domani alle %s, tavolo per %d.",
		dateLayout:   "02/01/2006",
		labels:       entities.EmailLabels{Code: "Prenotazione", Date: "Data", Time: "Ora", Guests: "Persone", Status: "Stato", Requests: "Richieste"},
	},
}

// NotifyService renders localized reservation messages and hands them to a
// mailer and, when the customer left a phone number, a texter.
type NotifyService struct {
	mailer     Mailer
	texter     Texter
	restaurant string
	tmpl       *template.Template
	now        func() time.Time
}

func NewNotifyService(mailer Mailer, texter Texter, restaurant string) (*NotifyService, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/reservation_email.html")
	if err != nil {
		return nil, fmt.Errorf("error parsing email template: %w", err)
	}
	return &NotifyService{
		mailer:     mailer,
		texter:     texter,
		restaurant: restaurant,
		tmpl:       tmpl,
		now:        time.Now,
	}, nil
}

func (n *NotifyService) Notify(ctx context.Context, res db.Reservation, kind MessageKind) error {
	lang := utils.NormalizeLanguage(res.Language)
	p := messages[lang]
	status := utils.StatusTranslation(res.Status, lang)

	subject, plain, htmlBody, err := n.renderEmail(res, kind, lang, status, p)
	if err != nil {
		return err
	}

	var errs []error
	if n.mailer != nil {
		if err := n.mailer.SendEmail(ctx, res.CustomerEmail, res.CustomerName, subject, plain, htmlBody); err != nil {
			errs = append(errs, fmt.Errorf("email: %w", err))
		}
	}
	if n.texter != nil && res.CustomerPhone != "" {
		if err := n.texter.SendSMS(ctx, res.CustomerPhone, n.renderSMS(res, kind, status, p)); err != nil {
			errs = append(errs, fmt.Errorf("sms: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (n *NotifyService) renderEmail(res db.Reservation, kind MessageKind, lang, status string, p phrases) (string, string, string, error) {
	dateFormatted := res.Date
	if day, err := time.Parse("2006-01-02", res.Date); err == nil {
		dateFormatted = day.Format(p.dateLayout)
	}

	subject := fmt.Sprintf(p.subject, n.restaurant, status)
	headline := fmt.Sprintf(p.statusLine, n.restaurant, status)
	if kind == MessageReminder {
		subject = fmt.Sprintf(p.reminderSubj, n.restaurant)
		headline = fmt.Sprintf(p.reminderLine, n.restaurant, res.Time)
	}

	data := entities.ReservationEmailData{
		Restaurant:      n.restaurant,
		CustomerName:    res.CustomerName,
		ReservationID:   res.ID,
		DateFormatted:   dateFormatted,
		Time:            res.Time,
		PartySize:       res.PartySize,
		SpecialRequests: res.SpecialRequests,
		Status:          status,
		Headline:        headline,
		Greeting:        fmt.Sprintf(p.greeting, res.CustomerName),
		Labels:          p.labels,
		CurrentYear:     n.now().Year(),
		Language:        lang,
	}

	plain := fmt.Sprintf("%s\n\n%s\n\n%s: %s\n%s: %s\n%s: %s\n%s: %d\n\n%s\n%s",
		data.Greeting, headline,
		p.labels.Code, res.ID,
		p.labels.Date, dateFormatted,
		p.labels.Time, res.Time,
		p.labels.Guests, res.PartySize,
		p.closing, n.restaurant,
	)

	var buf bytes.Buffer
	if err := n.tmpl.Execute(&buf, data); err != nil {
		return "", "", "", fmt.Errorf("error rendering email for reservation %s: %w", res.ID, err)
	}
	return subject, plain, buf.String(), nil
}

func (n *NotifyService) renderSMS(res db.Reservation, kind MessageKind, status string, p phrases) string {
	if kind == MessageReminder {
		return fmt.Sprintf(p.reminderSMS, n.restaurant, res.Time, res.PartySize)
	}
	date := res.Date
	if day, err := time.Parse("2006-01-02", res.Date); err == nil {
		date = day.Format("02/01")
	}
	return fmt.Sprintf(p.sms, n.restaurant, shortCode(res.ID), status, date, res.Time, res.PartySize)
}

// shortCode is the first block of a reservation id, short enough for SMS.
func shortCode(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
