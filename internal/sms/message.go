package sms

import (
	"fmt"
	"strings"
)

// CleanPhone strips formatting and prefixes a Turkish country code when the
// number looks local.
func CleanPhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	p := b.String()

	switch {
	case strings.HasPrefix(p, "0") && len(p) == 11:
		return "90" + p[1:]
	case !strings.HasPrefix(p, "90") && len(p) == 10:
		return "90" + p
	}
	return p
}

// ComposeReminder builds the reminder message body. Date is dd.mm.yyyy, time
// is HH:MM.
func ComposeReminder(title, date, timeOfDay, companyName string) string {
	return fmt.Sprintf(`Merhaba,

%[4]s ile %[1]s randevunuz yarın %[2]s tarihinde %[3]s saatinde gerçekleşecektir.

Randevu detayları:
- Tarih: %[2]s
- Saat: %[3]s
- Konu: %[1]s

Randevunuzu iptal etmek veya değiştirmek için lütfen bizimle iletişime geçin.

İyi günler,
%[4]s`, title, date, timeOfDay, companyName)
}
