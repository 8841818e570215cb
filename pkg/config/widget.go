package config

import (
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/tendant/simple-auth/pkg/federated"
)

// WidgetConfig is the recognized option surface of the auth widget.
type WidgetConfig struct {
	PoolID   string `env:"AUTH_POOL_ID" env-default:""`
	ClientID string `env:"AUTH_CLIENT_ID" env-default:""`
	Region   string `env:"AUTH_REGION" env-default:"us-east-1"`

	// Federated SSO settings; IssuerURL empty disables the
	// federated sign-in form.
	FederatedIssuerURL    string `env:"AUTH_FEDERATED_ISSUER_URL" env-default:""`
	FederatedProviderName string `env:"AUTH_FEDERATED_PROVIDER" env-default:"cognito"`
	Origin                string `env:"AUTH_ORIGIN" env-default:"http://localhost:4000"`

	// Modal presentation knobs passed through to the rendering layer.
	ModalBackground string `env:"AUTH_MODAL_BACKGROUND" env-default:"rgba(0,0,0,0.5)"`
	ZIndex          int    `env:"AUTH_MODAL_Z_INDEX" env-default:"1050"`

	// Sign-in method toggles.
	EnableSRP       bool `env:"AUTH_ENABLE_SRP" env-default:"true"`
	EnableOtp       bool `env:"AUTH_ENABLE_OTP" env-default:"false"`
	EnableMagicLink bool `env:"AUTH_ENABLE_MAGIC_LINK" env-default:"false"`
	EnablePasskey   bool `env:"AUTH_ENABLE_PASSKEY" env-default:"false"`

	// ReloadAfterMagicLink forces a full page reload after a magic-link
	// completion instead of an in-place form swap.
	ReloadAfterMagicLink bool `env:"AUTH_RELOAD_AFTER_MAGIC_LINK" env-default:"false"`
}

// FederatedEnabled reports whether the federated sign-in form can be shown.
func (c WidgetConfig) FederatedEnabled() bool {
	return c.FederatedIssuerURL != ""
}

// ToFederatedConfig converts the widget settings into the federated
// helper's config.
func (c WidgetConfig) ToFederatedConfig() federated.Config {
	return federated.Config{
		IssuerURL:    c.FederatedIssuerURL,
		ClientID:     c.ClientID,
		ProviderName: c.FederatedProviderName,
		Origin:       c.Origin,
	}
}

// LoadWidgetConfig reads the widget configuration from the environment.
func LoadWidgetConfig() (WidgetConfig, error) {
	var cfg WidgetConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return WidgetConfig{}, err
	}
	return cfg, nil
}
