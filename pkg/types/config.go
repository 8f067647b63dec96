package types

type Config struct {
	ServerPort       uint   `envconfig:"SERVER_PORT" default:"8080"`
	DatabaseURL      string `envconfig:"DATABASE_URL"`
	DatabaseSchema   string `envconfig:"DATABASE_SCHEMA" default:"welfare"`
	DatabaseMaxConns int32  `envconfig:"DATABASE_MAX_CONNS" default:"10"`
	ReadTimeoutSec   uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec  uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"60"`

	// Cognito Auth. The issuer URL is derived from the pool id when unset.
	CognitoUserPoolID string `envconfig:"COGNITO_USER_POOL_ID"`
	CognitoClientID   string `envconfig:"COGNITO_CLIENT_ID"`
	CognitoIssuerURL  string `envconfig:"COGNITO_ISSUER_URL"`
	AdminGroupName    string `envconfig:"ADMIN_GROUP_NAME" default:"admin"`

	// Document storage
	S3BucketName     string `envconfig:"S3_BUCKET_NAME" default:"application-documents"`
	PresignExpirySec int    `envconfig:"PRESIGN_EXPIRY_SEC" default:"900"`

	// Notifications
	NotifyFromEmail    string `envconfig:"NOTIFY_FROM_EMAIL" default:"no-reply@welfare.example.org"`
	NotifyEmailEnabled bool   `envconfig:"NOTIFY_EMAIL_ENABLED" default:"true"`
	NotifySMSEnabled   bool   `envconfig:"NOTIFY_SMS_ENABLED" default:"false"`

	// Submission guard, disabled when RedisAddr is empty
	RedisAddr             string `envconfig:"REDIS_ADDR"`
	RedisPassword         string `envconfig:"REDIS_PASSWORD"`
	RedisDB               int    `envconfig:"REDIS_DB" default:"0"`
	SubmissionGuardTTLSec int    `envconfig:"SUBMISSION_GUARD_TTL_SEC" default:"600"`

	// Chat assistant
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`

	// Wizard drafts live in memory and expire after this much idle time
	DraftIdleTTLSec int `envconfig:"DRAFT_IDLE_TTL_SEC" default:"3600"`

	// Cookie encryption keys (base64 encoded)
	// openssl rand -base64 32
	// to generate values
	CookieHashKey  string `envconfig:"COOKIE_HASH_KEY"`  // 32 or 64 bytes
	CookieBlockKey string `envconfig:"COOKIE_BLOCK_KEY"` // 16, 24, or 32 bytes
}
