package pricing

// 送料の既定値。configで上書きできる。
const (
	DefaultFreeShippingThreshold = 60.00
	DefaultFlatShippingFee       = 5.90
)

type Config struct {
	FreeShippingThreshold float64
	FlatShippingFee       float64
}

func DefaultConfig() Config {
	return Config{
		FreeShippingThreshold: DefaultFreeShippingThreshold,
		FlatShippingFee:       DefaultFlatShippingFee,
	}
}

// 課金対象の1行。EffectivePrice は呼び出し側が解決済み
// （削除済みなら0、現在価格、無ければ追加時点の価格）。
type Line struct {
	Quantity       int64
	Available      int64
	EffectivePrice float64
	OutOfStock     bool
	Removed        bool
}

type Summary struct {
	Subtotal    float64 `json:"subtotal"`
	ShippingFee float64 `json:"shipping_fee"`
	Total       float64 `json:"total"`
}

// 課金数量。在庫切れ・削除済みは0、それ以外は在庫数でキャップ。
func BillableQuantity(l Line) int64 {
	if l.OutOfStock || l.Removed {
		return 0
	}
	if l.Quantity > l.Available {
		return l.Available
	}
	return l.Quantity
}

// Summarize は小計・送料・合計を決定的に計算する。
// カート表示と確定時の両方で同じ入力なら必ず同じ結果になる。
func Summarize(cfg Config, lines []Line) Summary {
	var subtotal float64
	for _, l := range lines {
		subtotal += float64(BillableQuantity(l)) * l.EffectivePrice
	}

	// 小計0は送料なし、しきい値以上で送料無料
	var fee float64
	if subtotal > 0 && subtotal < cfg.FreeShippingThreshold {
		fee = cfg.FlatShippingFee
	}

	return Summary{
		Subtotal:    subtotal,
		ShippingFee: fee,
		Total:       subtotal + fee,
	}
}
