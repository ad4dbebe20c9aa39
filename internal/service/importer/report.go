package importer

import (
	stderrors "errors"
	"fmt"

	"github.com/dumeirei/market-merchant-backend/internal/common/errors"
	"github.com/dumeirei/market-merchant-backend/internal/service/market"
)

// Level 行消息级别
type Level string

const (
	// LevelWarning 商户已创建但未生成合同
	LevelWarning Level = "warning"
	// LevelError 该行未导入
	LevelError Level = "error"
)

// Message 行级诊断信息
type Message struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Value   string `json:"value,omitempty"`
	Level   Level  `json:"level"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (m Message) String() string {
	if m.Value == "" {
		return fmt.Sprintf("row %d: %s: %s", m.Row, m.Field, m.Message)
	}
	return fmt.Sprintf("row %d: %s=%q: %s", m.Row, m.Field, m.Value, m.Message)
}

// Report 导入结果
type Report struct {
	ID        string    `json:"id"`
	Sheet     string    `json:"sheet"`
	DryRun    bool      `json:"dry_run"`
	Total     int       `json:"total"`
	Merchants int       `json:"merchants"`
	Contracts int       `json:"contracts"`
	Rejected  int       `json:"rejected"`
	Messages  []Message `json:"messages"`
	Rows      []*Row    `json:"rows,omitempty"`
	Duration  string    `json:"duration"`
}

// Warnings 警告数
func (r *Report) Warnings() int {
	n := 0
	for _, m := range r.Messages {
		if m.Level == LevelWarning {
			n++
		}
	}
	return n
}

// messageOf 将行错误转换为诊断信息
func messageOf(row int, level Level, err error) Message {
	msg := Message{Row: row, Level: level, Field: "row", Message: err.Error()}

	var lookupErr *market.LookupError
	var cellErr *CellError
	switch {
	case stderrors.As(err, &lookupErr):
		msg.Field = lookupErr.Field
		msg.Value = lookupErr.Value
		msg.Code = lookupErr.Err.Code
		msg.Message = lookupErr.Err.Message
	case stderrors.As(err, &cellErr):
		msg.Field = cellErr.Field
		msg.Value = cellErr.Value
		msg.Code = errors.ErrInvalidCellValue.Code
		msg.Message = fmt.Sprintf("%s: %s", cellErr.Cell, errors.ErrInvalidCellValue.Message)
	default:
		appErr := errors.GetAppError(err)
		msg.Code = appErr.Code
	}
	return msg
}
