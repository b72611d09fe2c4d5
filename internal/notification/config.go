package notification

import "time"

// SMTPConfig holds connection parameters for the SMTP transport.
type SMTPConfig struct {
	Host       string        `json:"host"`
	Port       int           `json:"port"`
	Username   string        `json:"username"`
	Password   string        `json:"password"`
	FromAddr   string        `json:"from_address"`
	Encryption string        `json:"encryption"` // "none", "starttls", "ssl_tls"
	Timeout    time.Duration `json:"timeout"`
}
