package domain

// PlanID тарифный план подписки
type PlanID string

const (
	PlanFree    PlanID = "free"
	PlanBasic   PlanID = "basic"
	PlanPro     PlanID = "pro"
	PlanPremium PlanID = "premium"
)

func (p PlanID) IsValid() bool {
	switch p {
	case PlanFree, PlanBasic, PlanPro, PlanPremium:
		return true
	default:
		return false
	}
}

// IsPaid true для всех планов кроме бесплатного
func (p PlanID) IsPaid() bool {
	return p.IsValid() && p != PlanFree
}

// Plan тариф с ежемесячным начислением кредитов
type Plan struct {
	ID             PlanID `json:"id"`
	MonthlyCredits int64  `json:"monthly_credits"`
	PriceID        string `json:"-"` // id цены у платёжного провайдера
}

// CreditPack разовый пакет кредитов
type CreditPack struct {
	ID      string `json:"id"`
	Credits int64  `json:"credits"`
	PriceID string `json:"-"`
}

// Catalog каталог планов и пакетов, цены приходят из конфига
type Catalog struct {
	Plans []Plan
	Packs []CreditPack
}

func (c *Catalog) Plan(id PlanID) (Plan, bool) {
	for _, p := range c.Plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

func (c *Catalog) Pack(id string) (CreditPack, bool) {
	for _, p := range c.Packs {
		if p.ID == id {
			return p, true
		}
	}
	return CreditPack{}, false
}

// PlanByPriceID ищет план по id цены провайдера (приходит в инвойсах и подписках)
func (c *Catalog) PlanByPriceID(priceID string) (Plan, bool) {
	if priceID == "" {
		return Plan{}, false
	}
	for _, p := range c.Plans {
		if p.PriceID == priceID {
			return p, true
		}
	}
	return Plan{}, false
}

func (c *Catalog) PackByPriceID(priceID string) (CreditPack, bool) {
	if priceID == "" {
		return CreditPack{}, false
	}
	for _, p := range c.Packs {
		if p.PriceID == priceID {
			return p, true
		}
	}
	return CreditPack{}, false
}
