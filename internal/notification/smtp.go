package notification

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"ipek-store/internal/config"
	"ipek-store/internal/domain"

	"github.com/wneessen/go-mail"
)

var orderTemplate = template.Must(template.New("order").Parse(`<!DOCTYPE html>
<html lang="tr">
<head><meta charset="UTF-8"><title>{{.Heading}}</title></head>
<body style="font-family: Arial, sans-serif; background-color: #faf7f2; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #5b3a29;">{{.Heading}}</h2>
		<p>Merhaba {{.Order.Address.FullName}},</p>
		<p>{{.Intro}}</p>
		<p><strong>Sipariş no:</strong> {{.Order.OrderNumber}}<br>
		<strong>Durum:</strong> {{.Status}}</p>
		{{if .Order.TrackingNumber}}<p><strong>Kargo:</strong> {{.Order.CargoCompany}} - {{.Order.TrackingNumber}}</p>{{end}}
		<table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background-color: #f0ebe3;">
					<th style="padding: 8px; text-align: left;">Ürün</th>
					<th style="padding: 8px; text-align: left;">Adet</th>
					<th style="padding: 8px; text-align: right;">Tutar</th>
				</tr>
			</thead>
			<tbody>
			{{range .Order.Items}}
				<tr>
					<td style="padding: 8px;">{{.Name}}</td>
					<td style="padding: 8px;">{{.Quantity}}</td>
					<td style="padding: 8px; text-align: right;">{{.LineTotal.StringFixed 2}} TL</td>
				</tr>
			{{end}}
			</tbody>
		</table>
		<p>Ara toplam: {{.Order.Subtotal.StringFixed 2}} TL<br>
		{{if .Order.DiscountCode}}İndirim ({{.Order.DiscountCode}}): -{{.Order.DiscountAmount.StringFixed 2}} TL<br>{{end}}
		Kargo: {{.Order.ShippingFee.StringFixed 2}} TL<br>
		<strong>Toplam: {{.Order.Total.StringFixed 2}} TL</strong></p>
		<p style="margin-top: 30px; color: #555;">Sevgiler,<br><strong>İpek</strong></p>
	</div>
</body>
</html>`))

type orderView struct {
	Heading string
	Intro   string
	Status  string
	Order   *domain.Order
}

// SMTP delivers notifications through an SMTP relay.
type SMTP struct {
	cfg config.MailConfig
}

// NewSMTP creates an SMTP notifier from the mail configuration.
func NewSMTP(cfg config.MailConfig) *SMTP {
	return &SMTP{cfg: cfg}
}

func (s *SMTP) OrderPlaced(ctx context.Context, order *domain.Order) error {
	return s.send(ctx, order, orderView{
		Heading: "Siparişiniz alındı",
		Intro:   "Siparişiniz için teşekkür ederiz. Ödemeniz onaylandığında hazırlamaya başlayacağız.",
	})
}

func (s *SMTP) OrderStatusChanged(ctx context.Context, order *domain.Order) error {
	return s.send(ctx, order, orderView{
		Heading: "Sipariş durumunuz güncellendi",
		Intro:   "Siparişinizin durumu değişti.",
	})
}

func (s *SMTP) send(ctx context.Context, order *domain.Order, view orderView) error {
	view.Order = order
	view.Status = order.Status.Label()

	var body bytes.Buffer
	if err := orderTemplate.Execute(&body, view); err != nil {
		return fmt.Errorf("failed to render order mail: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(order.CustomerEmail); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(fmt.Sprintf("%s - %s", view.Heading, order.OrderNumber))
	msg.SetBodyString(mail.TypeTextHTML, body.String())

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}
