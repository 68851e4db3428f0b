package notify

import (
	"fmt"
	"html"
	"time"
)

// HTML wrapper shared by every transactional email
func emailTemplate(title, bodyContent string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; }
			.header { background-color: #00004D; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 24px; letter-spacing: 1px; }
			.content { padding: 40px 30px; color: #00004D; line-height: 1.6; }
			.footer { background-color: #F6F6F6; padding: 20px; text-align: center; font-size: 12px; color: #666666; border-top: 1px solid #E0E0E0; }
			.info-box { background: #E8F0FE; padding: 15px; border-radius: 4px; border-left: 4px solid #d7b56d; margin: 20px 0; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header">
				<h1>COURSEPAY</h1>
			</div>
			<div class="content">
				<h2>%s</h2>
				%s
			</div>
			<div class="footer">
				This is an automated message. Please do not reply.
			</div>
		</div>
	</body>
	</html>
	`, title, bodyContent)
}

// FormatAmount renders paise as a rupee amount, e.g. 80000 -> "₹800.00".
func FormatAmount(paise int64, currency string) string {
	symbol := currency + " "
	if currency == "INR" {
		symbol = "₹"
	}
	sign := ""
	if paise < 0 {
		sign = "-"
		paise = -paise
	}
	return fmt.Sprintf("%s%s%d.%02d", sign, symbol, paise/100, paise%100)
}

// PurchaseConfirmation builds the subject and body sent after a settlement succeeds.
func PurchaseConfirmation(courseTitle string, amount int64, currency string, paidAt time.Time) (string, string) {
	subject := "Purchase Confirmed: " + courseTitle
	body := fmt.Sprintf(`
		<p>Thank you for your purchase.</p>
		<div class="info-box">
			<ul style="list-style: none; padding: 0; margin: 0;">
				<li style="margin-bottom: 8px;"><strong>Course:</strong> %s</li>
				<li style="margin-bottom: 8px;"><strong>Amount:</strong> %s</li>
				<li><strong>Time:</strong> %s</li>
			</ul>
		</div>
		<p>If you have not created an account yet, sign up with this email address and the course will be added automatically.</p>
	`, html.EscapeString(courseTitle), FormatAmount(amount, currency), paidAt.Format("02 Jan 2006 15:04 MST"))

	return subject, emailTemplate("Payment Successful", body)
}
