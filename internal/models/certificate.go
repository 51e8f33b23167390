package models

import (
	"regexp"
	"time"
)

// CertificateCodePattern is the public verification code format.
var CertificateCodePattern = regexp.MustCompile(`^CC-[A-Z0-9]{8}$`)

// Certificate is an issued proof-of-completion record.
type Certificate struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	ActivityID    string    `db:"activity_id" json:"activity_id"`
	Code          string    `db:"code" json:"code"`
	HolderName    string    `db:"holder_name" json:"holder_name"`
	ActivityTitle string    `db:"activity_title" json:"activity_title"`
	HoursTotal    float64   `db:"hours_total" json:"hours_total"`
	IssuedAt      time.Time `db:"issued_at" json:"issued_at"`
	PDFPath       string    `db:"pdf_path" json:"-"`
}

// CertificateVerification is the public lookup result.
type CertificateVerification struct {
	Code          string    `json:"code"`
	HolderName    string    `json:"holder_name"`
	ActivityTitle string    `json:"activity_title"`
	HoursTotal    float64   `json:"hours_total"`
	IssuedAt      time.Time `json:"issued_at"`
}
