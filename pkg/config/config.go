package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// App is the process-wide configuration for the booking service. It is loaded
// once at startup and treated as immutable afterwards.
type App struct {
	// DB
	PGBookingDSN string `envconfig:"PG_BOOKING_DSN" required:"true"`

	// HTTP
	BookingHTTPAddr string `envconfig:"BOOKING_HTTP_ADDR" default:":8083"`

	// JWT
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// RabbitMQ: booking events go out, user events come in
	RabbitURL       string `envconfig:"RABBIT_URL" required:"true"`
	BookingExchange string `envconfig:"BOOKING_EXCHANGE" default:"booking.exchange"`
	UserExchange    string `envconfig:"USER_EXCHANGE" default:"user.exchange"`
	UserQueue       string `envconfig:"BOOKING_USER_QUEUE" default:"booking.user.q"`

	// Recurrence generation
	GenerationInterval    time.Duration `envconfig:"GENERATION_INTERVAL" default:"15m"`
	GenerationHorizonDays int           `envconfig:"GENERATION_HORIZON_DAYS" default:"14"`
	GenerationLookBack    time.Duration `envconfig:"GENERATION_LOOKBACK" default:"1h"`
	GenerationBudget      time.Duration `envconfig:"GENERATION_BUDGET" default:"5m"`

	// Priority score boost applied to emergency requests
	EmergencyBoost float64 `envconfig:"EMERGENCY_PRIORITY_BOOST" default:"100"`

	// Late return fees. Bands are a JSON array, validated at startup.
	LateFeeGraceMinutes int     `envconfig:"LATE_FEE_GRACE_MINUTES" default:"15"`
	LateFeeMax          float64 `envconfig:"LATE_FEE_MAX" default:"200"`
	LateFeeBands        string  `envconfig:"LATE_FEE_BANDS" default:"[{\"from_minutes\":0,\"to_minutes\":60,\"rate_per_hour\":2},{\"from_minutes\":60,\"rate_per_hour\":4}]"`
	NotifyOnLateFee     bool    `envconfig:"NOTIFY_ON_LATE_FEE" default:"true"`
}

func Load() (App, error) {
	_ = godotenv.Load()
	var c App
	err := envconfig.Process("", &c)
	return c, err
}
