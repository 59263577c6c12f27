package config

// EnvPrefix is handed to envconfig; fields name their variables explicitly and envconfig falls back to those names.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	PayFastLiveURL    = "https://www.payfast.co.za/eng/process"
	PayFastSandboxURL = "https://sandbox.payfast.co.za/eng/process"
)

const (
	EnvAppEnv        = "STOREFRONT_APP_ENV"
	EnvPort          = "STOREFRONT_APP_PORT"
	EnvDBDSN         = "STOREFRONT_DB_DSN"
	EnvDBHost        = "STOREFRONT_DB_HOST"
	EnvDBUser        = "STOREFRONT_DB_USER"
	EnvDBName        = "STOREFRONT_DB_NAME"
	EnvRedisURL      = "STOREFRONT_REDIS_URL"
	EnvSessionSecret = "STOREFRONT_SESSION_SECRET"

	EnvCatalogBaseURL  = "STOREFRONT_CATALOG_BASE_URL"
	EnvCarrierBaseURL  = "STOREFRONT_CARRIER_BASE_URL"
	EnvCarrierTimeout  = "STOREFRONT_CARRIER_TIMEOUT"
	EnvOrderAPIBaseURL = "STOREFRONT_ORDER_API_BASE_URL"

	EnvWarehouseStreet     = "STOREFRONT_WAREHOUSE_STREET"
	EnvWarehouseCity       = "STOREFRONT_WAREHOUSE_CITY"
	EnvWarehouseZone       = "STOREFRONT_WAREHOUSE_ZONE"
	EnvWarehousePostalCode = "STOREFRONT_WAREHOUSE_POSTAL_CODE"

	EnvPayFastMerchantID  = "STOREFRONT_PAYFAST_MERCHANT_ID"
	EnvPayFastMerchantKey = "STOREFRONT_PAYFAST_MERCHANT_KEY"
	EnvPayFastSandbox     = "STOREFRONT_PAYFAST_SANDBOX"
)

var componentDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
