package importer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/dumeirei/market-merchant-backend/internal/common/errors"
	"github.com/dumeirei/market-merchant-backend/internal/common/utils"
)

// 列位置（从 1 开始），第 1 行为表头
const (
	colName = iota + 1
	colNationalID
	colPhone
	colSecondaryPhone
	colAddress
	colPlace
	colHall
	colZone
	colMarchee
	colCategory
	colAnnualFee
	colFrequency
	colStartDate
)

// headerRows 表头行数
const headerRows = 1

// Headers 导入模板表头
var Headers = []string{
	"Name", "National ID", "Phone", "Secondary Phone", "Address",
	"Place", "Hall", "Zone", "Marché", "Category", "Annual Fee", "Frequency", "Start Date",
}

// Row 从表格中提取的一行
type Row struct {
	Number         int              `json:"row"`
	Name           string           `json:"name"`
	NationalID     string           `json:"national_id"`
	Phone          string           `json:"phone,omitempty"`
	SecondaryPhone string           `json:"secondary_phone,omitempty"`
	Address        string           `json:"address,omitempty"`
	Place          string           `json:"place,omitempty"`
	Hall           string           `json:"hall,omitempty"`
	Zone           string           `json:"zone,omitempty"`
	Marchee        string           `json:"marchee,omitempty"`
	Category       string           `json:"category,omitempty"`
	AnnualFee      *decimal.Decimal `json:"annual_fee,omitempty"`
	Frequency      string           `json:"frequency,omitempty"`
	StartDate      *time.Time       `json:"start_date,omitempty"`
}

// CellError 单元格解析失败，仅中止所在行
type CellError struct {
	Cell  string
	Field string
	Value string
}

func (e *CellError) Error() string {
	return fmt.Sprintf("%s (%s=%q): %s", e.Cell, e.Field, e.Value, errors.ErrInvalidCellValue.Message)
}

func (e *CellError) Unwrap() error {
	return errors.ErrInvalidCellValue
}

// blank 整行是否为空
func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// cell 取第 col 列的值，GetRows 会截掉行尾空单元格
func cell(cells []string, col int) string {
	if col > len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[col-1])
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// extract 将一行单元格转换为 Row，number 为表格中的行号
func extract(cells []string, number int) (*Row, error) {
	r := &Row{
		Number:         number,
		Name:           utils.CollapseSpaces(cell(cells, colName)),
		NationalID:     cell(cells, colNationalID),
		Phone:          cell(cells, colPhone),
		SecondaryPhone: cell(cells, colSecondaryPhone),
		Address:        cell(cells, colAddress),
		Place:          cell(cells, colPlace),
		Hall:           cell(cells, colHall),
		Zone:           cell(cells, colZone),
		Marchee:        cell(cells, colMarchee),
		Category:       cell(cells, colCategory),
		Frequency:      cell(cells, colFrequency),
	}

	if raw := cell(cells, colAnnualFee); raw != "" {
		amount, err := parseAmount(raw)
		if err != nil {
			return nil, &CellError{Cell: cellName(colAnnualFee, number), Field: "annual_fee", Value: raw}
		}
		r.AnnualFee = &amount
	}

	if raw := cell(cells, colStartDate); raw != "" {
		start, err := parseDate(raw)
		if err != nil {
			return nil, &CellError{Cell: cellName(colStartDate, number), Field: "start_date", Value: raw}
		}
		r.StartDate = &start
	}
	return r, nil
}

// parseAmount 解析金额，接受空格或逗号千分位及逗号小数点
// 同时出现 . 和 , 时靠后的为小数点；单个逗号后恰好三位数字视为千分位
func parseAmount(raw string) (decimal.Decimal, error) {
	s := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f':
			return -1
		}
		return r
	}, raw)

	dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0:
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		if strings.Count(s, ",") > 1 || thousandsGroup(s, comma) {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case dot >= 0 && strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Round(2), nil
}

// thousandsGroup 分隔符后恰好三位数字且整数部分非零，如 1,500
func thousandsGroup(s string, sep int) bool {
	intPart := strings.TrimLeft(s[:sep], "+-")
	if intPart == "" || strings.Trim(intPart, "0") == "" {
		return false
	}
	frac := s[sep+1:]
	if len(frac) != 3 {
		return false
	}
	for _, r := range frac {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// parseDate 解析日期单元格，支持 YYYY-MM-DD、DD/MM/YYYY 及 Excel 序列号
func parseDate(raw string) (time.Time, error) {
	if t, err := utils.ParseDate(raw); err == nil {
		return t, nil
	}
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil || serial <= 0 {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}
