package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/divan/num2words"
	"github.com/shopspring/decimal"
)

// Receipt 缴费收据
type Receipt struct {
	ReceiptNo     string     `json:"receipt_no"`
	MerchantName  string     `json:"merchant_name"`
	NationalID    string     `json:"national_id"`
	Place         string     `json:"place"`
	Motif         string     `json:"motif"`
	Amount        string     `json:"amount"`
	AmountInWords string     `json:"amount_in_words"`
	Currency      string     `json:"currency"`
	PaymentDate   *time.Time `json:"payment_date,omitempty"`
	IssuedAt      time.Time  `json:"issued_at"`
}

// AmountInWords 金额大写，整数部分转英文单词，分以 NN/100 表示
func AmountInWords(amount decimal.Decimal, currency string) string {
	amount = amount.Abs().Round(2)
	whole := amount.IntPart()
	cents := amount.Sub(decimal.NewFromInt(whole)).Mul(decimal.NewFromInt(100)).IntPart()

	words := num2words.Convert(int(whole))
	if cents > 0 {
		words = fmt.Sprintf("%s and %02d/100", words, cents)
	}
	if currency != "" {
		words += " " + currency
	}
	return strings.TrimSpace(words)
}

// Receipt 生成缴费收据
func (s *PaymentService) Receipt(ctx context.Context, id int64) (*Receipt, error) {
	p, err := s.payment(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := s.assembler.Payment(p)
	return &Receipt{
		ReceiptNo:     dto.ReceiptNo,
		MerchantName:  dto.MerchantName,
		NationalID:    dto.NationalID,
		Place:         dto.Place,
		Motif:         dto.Motif,
		Amount:        dto.Amount,
		AmountInWords: AmountInWords(p.Amount, s.currency),
		Currency:      s.currency,
		PaymentDate:   p.PaymentDate,
		IssuedAt:      s.now(),
	}, nil
}
