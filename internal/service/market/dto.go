package market

import (
	"time"

	"github.com/dumeirei/market-merchant-backend/internal/common/crypto"
	"github.com/dumeirei/market-merchant-backend/internal/models"
)

// PlaceDTO 摊位读模型
type PlaceDTO struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	LocationName string     `json:"location_name"`
	HallName     string     `json:"hall_name,omitempty"`
	ZoneName     string     `json:"zone_name,omitempty"`
	MarcheeName  string     `json:"marchee_name,omitempty"`
	MerchantID   *int64     `json:"merchant_id,omitempty"`
	MerchantName string     `json:"merchant_name,omitempty"`
	AssignedAt   *time.Time `json:"assigned_at,omitempty"`
}

// ContractDTO 合同读模型
type ContractDTO struct {
	ID             int64            `json:"id"`
	Category       string           `json:"category,omitempty"`
	CategoryFee    string           `json:"category_fee,omitempty"`
	AnnualFee      string           `json:"annual_fee,omitempty"`
	AnnualFeeLabel string           `json:"annual_fee_label,omitempty"`
	Frequency      models.Frequency `json:"frequency,omitempty"`
	StartDate      *time.Time       `json:"start_date,omitempty"`
	PlaceID        *int64           `json:"place_id,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// MerchantDTO 商户读模型
type MerchantDTO struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	NationalID     string          `json:"national_id"`
	Phone          *string         `json:"phone,omitempty"`
	SecondaryPhone *string         `json:"secondary_phone,omitempty"`
	Address        *string         `json:"address,omitempty"`
	PhotoURL       *string         `json:"photo_url,omitempty"`
	Status         int8            `json:"status"`
	LocationName   string          `json:"location_name"`
	Places         []PlaceDTO      `json:"places"`
	ActiveContract *ContractDTO    `json:"active_contract,omitempty"`
	Summary        *PaymentSummary `json:"payment_summary"`
	PaymentCount   int             `json:"payment_count"`
	CreatedAt      time.Time       `json:"created_at"`
}

// PaymentDTO 缴费读模型
type PaymentDTO struct {
	ID           int64              `json:"id"`
	ReceiptNo    string             `json:"receipt_no"`
	MerchantID   int64              `json:"merchant_id"`
	MerchantName string             `json:"merchant_name,omitempty"`
	NationalID   string             `json:"national_id,omitempty"`
	Place        string             `json:"place"`
	ContractID   int64              `json:"contract_id"`
	Type         models.PaymentType `json:"type"`
	Amount       string             `json:"amount"`
	PaymentDate  *time.Time         `json:"payment_date,omitempty"`
	PeriodStart  *time.Time         `json:"period_start,omitempty"`
	PeriodEnd    *time.Time         `json:"period_end,omitempty"`
	Motif        string             `json:"motif"`
	PeriodIndex  *string            `json:"period_index,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}

// Assembler 读模型组装器
type Assembler struct {
	calc *Calculator
	now  func() time.Time
}

// NewAssembler 创建读模型组装器
func NewAssembler(calc *Calculator) *Assembler {
	return &Assembler{calc: calc, now: time.Now}
}

// Place 组装摊位读模型
func (a *Assembler) Place(p *models.Place) PlaceDTO {
	dto := PlaceDTO{
		ID:           p.ID,
		Name:         p.Name,
		LocationName: LocationName(p),
		MerchantID:   p.MerchantID,
		AssignedAt:   p.AssignedAt,
	}
	if p.Hall != nil {
		dto.HallName = p.Hall.Name
	}
	if z := placeZone(p); z != nil {
		dto.ZoneName = z.Name
	}
	if m := placeMarchee(p); m != nil {
		dto.MarcheeName = m.Name
	}
	if p.Merchant != nil {
		dto.MerchantName = p.Merchant.Name
	}
	return dto
}

// Contract 组装合同读模型
func (a *Assembler) Contract(c *models.Contract) *ContractDTO {
	if c == nil {
		return nil
	}
	dto := &ContractDTO{
		ID:        c.ID,
		Frequency: c.FrequencyValue(),
		StartDate: c.StartDate,
		PlaceID:   c.PlaceID,
		CreatedAt: c.CreatedAt,
	}
	if c.Category != nil {
		dto.Category = string(c.Category.Name)
		dto.CategoryFee = formatAmount(c.Category.Fee)
	}
	if c.AnnualFee != nil {
		dto.AnnualFee = formatAmount(c.AnnualFee.Amount)
		dto.AnnualFeeLabel = c.AnnualFee.Label
	}
	return dto
}

// Merchant 组装商户读模型，masked 为 true 时身份证号脱敏（列表视图）
func (a *Assembler) Merchant(m *models.Merchant, masked bool) *MerchantDTO {
	dto := &MerchantDTO{
		ID:             m.ID,
		Name:           m.Name,
		NationalID:     m.NationalID,
		Phone:          m.Phone,
		SecondaryPhone: m.SecondaryPhone,
		Address:        m.Address,
		PhotoURL:       m.PhotoURL,
		Status:         m.Status,
		Places:         make([]PlaceDTO, 0, len(m.Places)),
		ActiveContract: a.Contract(m.ActiveContract()),
		Summary:        a.calc.Summarize(m, a.now()),
		PaymentCount:   len(m.Payments),
		CreatedAt:      m.CreatedAt,
	}
	if masked {
		dto.NationalID = crypto.MaskNationalID(m.NationalID)
	}
	for i := range m.Places {
		dto.Places = append(dto.Places, a.Place(&m.Places[i]))
	}
	dto.LocationName = LocationName(m.LatestPlace())
	return dto
}

// Payment 组装缴费读模型，摊位显示商户最近分配的摊位
func (a *Assembler) Payment(p *models.Payment) *PaymentDTO {
	dto := &PaymentDTO{
		ID:          p.ID,
		ReceiptNo:   p.ReceiptNo,
		MerchantID:  p.MerchantID,
		ContractID:  p.ContractID,
		Type:        p.Type,
		Amount:      formatAmount(p.Amount),
		PaymentDate: p.PaymentDate,
		PeriodStart: p.PeriodStart,
		PeriodEnd:   p.PeriodEnd,
		Motif:       p.Motif,
		PeriodIndex: p.PeriodIndex,
		CreatedAt:   p.CreatedAt,
	}
	if p.Merchant != nil {
		dto.MerchantName = p.Merchant.Name
		dto.NationalID = crypto.MaskNationalID(p.Merchant.NationalID)
		dto.Place = LocationName(p.Merchant.LatestPlace())
	}
	return dto
}
