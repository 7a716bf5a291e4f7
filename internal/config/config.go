package config

import (
	"fmt"
	"os"
	"strconv"

	"app/internal/pricing"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	JWTSecret string // JWT署名シークレット

	GoEnv string // dev/prod

	Pricing pricing.Config // 送料の閾値と固定額
}

// Loadは環境変数
func Load() (Config, error) {
	cfg := Config{
		Port:      os.Getenv("PORT"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		GoEnv:     os.Getenv("GO_ENV"),
		Pricing:   pricing.DefaultConfig(),
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.GoEnv == "" {
		cfg.GoEnv = "dev"
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}

	// 送料設定は任意で上書きできる
	if v, ok, err := optionalFloat("SHIPPING_FREE_THRESHOLD"); err != nil {
		return Config{}, err
	} else if ok {
		cfg.Pricing.FreeShippingThreshold = v
	}
	if v, ok, err := optionalFloat("SHIPPING_FLAT_FEE"); err != nil {
		return Config{}, err
	} else if ok {
		cfg.Pricing.FlatShippingFee = v
	}

	return cfg, nil
}

func optionalFloat(key string) (float64, bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be number: %w", key, err)
	}
	if f < 0 {
		return 0, false, fmt.Errorf("%s must be >= 0", key)
	}
	return f, true, nil
}
