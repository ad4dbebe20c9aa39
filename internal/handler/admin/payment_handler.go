package admin

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/market-merchant-backend/internal/common/handler"
	"github.com/dumeirei/market-merchant-backend/internal/common/response"
	paymentService "github.com/dumeirei/market-merchant-backend/internal/service/payment"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// PaymentHandler 缴费管理处理器
type PaymentHandler struct {
	paymentService *paymentService.PaymentService
}

// NewPaymentHandler 创建缴费管理处理器
func NewPaymentHandler(paymentSvc *paymentService.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentSvc}
}

// Record 登记缴费
// @Summary 登记缴费
// @Description 金额与事由按生效合同与缴费历史自动计算
// @Tags 缴费管理
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "商户ID"
// @Param request body paymentService.RecordPaymentRequest true "请求参数"
// @Success 201 {object} response.Response{data=market.PaymentDTO}
// @Router /admin/merchants/{id}/payments [post]
func (h *PaymentHandler) Record(c *gin.Context) {
	adminID, merchantID, ok := handler.RequireAdminAndParseID(c, "商户")
	if !ok {
		return
	}

	var req paymentService.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	payment, err := h.paymentService.Record(c.Request.Context(), adminID, merchantID, &req)
	handler.MustCreate(c, err, payment)
}

// List 缴费列表
// @Summary 缴费列表
// @Tags 缴费管理
// @Produce json
// @Security Bearer
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param merchant_id query int false "商户ID"
// @Param type query string false "缴费类型" Enums(ANNUAL_FEE, STALL_FEE)
// @Param start_date query string false "开始日期"
// @Param end_date query string false "结束日期"
// @Success 200 {object} response.Response{data=response.PageData{list=[]market.PaymentDTO}}
// @Router /admin/payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	filters, ok := h.filters(c)
	if !ok {
		return
	}
	p := handler.BindPagination(c)

	list, total, err := h.paymentService.List(c.Request.Context(), p.GetOffset(), p.GetLimit(), filters)
	handler.MustSucceedPage(c, err, list, total, p.Page, p.PageSize)
}

// Export 导出缴费记录
// @Summary 导出缴费记录（xlsx）
// @Tags 缴费管理
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security Bearer
// @Param merchant_id query int false "商户ID"
// @Param type query string false "缴费类型" Enums(ANNUAL_FEE, STALL_FEE)
// @Param start_date query string false "开始日期"
// @Param end_date query string false "结束日期"
// @Success 200 {file} binary
// @Router /admin/payments/export [get]
func (h *PaymentHandler) Export(c *gin.Context) {
	filters, ok := h.filters(c)
	if !ok {
		return
	}

	data, err := h.paymentService.Export(c.Request.Context(), filters)
	if handler.HandleError(c, err) {
		return
	}
	response.Attachment(c, paymentService.ExportFilename(time.Now()), xlsxContentType, data)
}

// Get 缴费详情
// @Summary 缴费详情
// @Tags 缴费管理
// @Produce json
// @Security Bearer
// @Param id path int true "缴费ID"
// @Success 200 {object} response.Response{data=market.PaymentDTO}
// @Router /admin/payments/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	id, ok := handler.ParseID(c, "缴费")
	if !ok {
		return
	}

	payment, err := h.paymentService.Get(c.Request.Context(), id)
	handler.MustSucceed(c, err, payment)
}

// Receipt 缴费收据
// @Summary 缴费收据
// @Tags 缴费管理
// @Produce json
// @Security Bearer
// @Param id path int true "缴费ID"
// @Success 200 {object} response.Response{data=paymentService.Receipt}
// @Router /admin/payments/{id}/receipt [get]
func (h *PaymentHandler) Receipt(c *gin.Context) {
	id, ok := handler.ParseID(c, "缴费")
	if !ok {
		return
	}

	receipt, err := h.paymentService.Receipt(c.Request.Context(), id)
	handler.MustSucceed(c, err, receipt)
}

func (h *PaymentHandler) filters(c *gin.Context) (map[string]interface{}, bool) {
	filters := map[string]interface{}{}

	merchantID, ok := handler.ParseQueryID(c, "merchant_id", "商户")
	if !ok {
		return nil, false
	}
	if merchantID != nil {
		filters["merchant_id"] = *merchantID
	}

	if raw := c.Query("type"); raw != "" {
		feeType, err := paymentService.ParsePaymentType(raw)
		if err != nil {
			response.BadRequest(c, "无效的缴费类型")
			return nil, false
		}
		filters["type"] = feeType
	}

	start, end, ok := handler.ParseQueryDateRange(c)
	if !ok {
		return nil, false
	}
	if start != nil {
		filters["start_date"] = *start
	}
	if end != nil {
		filters["end_date"] = *end
	}
	return filters, true
}

// RegisterRoutes 注册路由
func (h *PaymentHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/merchants/:id/payments", h.Record)

	payments := r.Group("/payments")
	{
		payments.GET("", h.List)
		payments.GET("/export", h.Export)
		payments.GET("/:id", h.Get)
		payments.GET("/:id/receipt", h.Receipt)
	}
}
