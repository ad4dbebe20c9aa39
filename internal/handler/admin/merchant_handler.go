package admin

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/market-merchant-backend/internal/common/handler"
	"github.com/dumeirei/market-merchant-backend/internal/common/response"
	"github.com/dumeirei/market-merchant-backend/internal/middleware"
	merchantService "github.com/dumeirei/market-merchant-backend/internal/service/merchant"
	uploadService "github.com/dumeirei/market-merchant-backend/internal/service/upload"
)

// MerchantHandler 商户管理处理器
type MerchantHandler struct {
	merchantService *merchantService.MerchantService
	contractService *merchantService.ContractService
	photoService    *uploadService.PhotoService
}

// NewMerchantHandler 创建商户管理处理器
func NewMerchantHandler(
	merchantSvc *merchantService.MerchantService,
	contractSvc *merchantService.ContractService,
	photoSvc *uploadService.PhotoService,
) *MerchantHandler {
	return &MerchantHandler{
		merchantService: merchantSvc,
		contractService: contractSvc,
		photoService:    photoSvc,
	}
}

// Create 创建商户
// @Summary 创建商户
// @Tags 商户管理
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body merchantService.CreateMerchantRequest true "请求参数"
// @Success 201 {object} response.Response{data=market.MerchantDTO}
// @Router /admin/merchants [post]
func (h *MerchantHandler) Create(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}

	var req merchantService.CreateMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	merchant, err := h.merchantService.Create(c.Request.Context(), &req)
	handler.MustCreate(c, err, merchant)
}

// List 商户列表
// @Summary 商户列表
// @Tags 商户管理
// @Produce json
// @Security Bearer
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param keyword query string false "姓名 / 身份证号 / 电话"
// @Param status query int false "状态"
// @Success 200 {object} response.Response{data=response.PageData{list=[]market.MerchantDTO}}
// @Router /admin/merchants [get]
func (h *MerchantHandler) List(c *gin.Context) {
	p := handler.BindPagination(c)

	filters := map[string]interface{}{}
	if keyword := c.Query("keyword"); keyword != "" {
		filters["keyword"] = keyword
	}
	if statusStr := c.Query("status"); statusStr != "" {
		status, err := strconv.ParseInt(statusStr, 10, 8)
		if err != nil {
			response.BadRequest(c, "无效的状态")
			return
		}
		filters["status"] = int8(status)
	}

	list, total, err := h.merchantService.List(c.Request.Context(), p.GetOffset(), p.GetLimit(), filters)
	handler.MustSucceedPage(c, err, list, total, p.Page, p.PageSize)
}

// Get 商户详情
// @Summary 商户详情
// @Tags 商户管理
// @Produce json
// @Security Bearer
// @Param id path int true "商户ID"
// @Success 200 {object} response.Response{data=market.MerchantDTO}
// @Router /admin/merchants/{id} [get]
func (h *MerchantHandler) Get(c *gin.Context) {
	id, ok := handler.ParseID(c, "商户")
	if !ok {
		return
	}

	merchant, err := h.merchantService.Get(c.Request.Context(), id)
	handler.MustSucceed(c, err, merchant)
}

// Update 更新商户
// @Summary 更新商户
// @Tags 商户管理
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "商户ID"
// @Param request body merchantService.UpdateMerchantRequest true "请求参数"
// @Success 200 {object} response.Response{data=market.MerchantDTO}
// @Router /admin/merchants/{id} [put]
func (h *MerchantHandler) Update(c *gin.Context) {
	_, id, ok := handler.RequireAdminAndParseID(c, "商户")
	if !ok {
		return
	}

	var req merchantService.UpdateMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	merchant, err := h.merchantService.Update(c.Request.Context(), id, &req)
	handler.MustSucceed(c, err, merchant)
}

// Delete 删除商户
// @Summary 删除商户
// @Description 存在合同或缴费记录的商户不能删除
// @Tags 商户管理
// @Produce json
// @Security Bearer
// @Param id path int true "商户ID"
// @Success 200 {object} response.Response
// @Router /admin/merchants/{id} [delete]
func (h *MerchantHandler) Delete(c *gin.Context) {
	_, id, ok := handler.RequireAdminAndParseID(c, "商户")
	if !ok {
		return
	}

	err := h.merchantService.Delete(c.Request.Context(), id)
	handler.MustSucceed(c, err, nil)
}

// PaymentSummary 应缴费用汇总
// @Summary 应缴费用汇总
// @Tags 商户管理
// @Produce json
// @Security Bearer
// @Param id path int true "商户ID"
// @Success 200 {object} response.Response{data=market.PaymentSummary}
// @Router /admin/merchants/{id}/payment-summary [get]
func (h *MerchantHandler) PaymentSummary(c *gin.Context) {
	id, ok := handler.ParseID(c, "商户")
	if !ok {
		return
	}

	summary, err := h.merchantService.PaymentSummary(c.Request.Context(), id)
	handler.MustSucceed(c, err, summary)
}

// QRCode 商户证二维码
// @Summary 商户证二维码
// @Tags 商户管理
// @Produce png
// @Security Bearer
// @Param id path int true "商户ID"
// @Success 200 {file} binary
// @Router /admin/merchants/{id}/qrcode [get]
func (h *MerchantHandler) QRCode(c *gin.Context) {
	id, ok := handler.ParseID(c, "商户")
	if !ok {
		return
	}

	png, err := h.merchantService.Badge(c.Request.Context(), id)
	if handler.HandleError(c, err) {
		return
	}
	response.Attachment(c, fmt.Sprintf("merchant_%d.png", id), "image/png", png)
}

// UploadPhoto 上传商户照片
// @Summary 上传商户照片
// @Tags 商户管理
// @Accept multipart/form-data
// @Produce json
// @Security Bearer
// @Param id path int true "商户ID"
// @Param file formData file true "照片（jpg / png / webp）"
// @Success 200 {object} response.Response{data=uploadService.PhotoResponse}
// @Router /admin/merchants/{id}/photo [post]
func (h *MerchantHandler) UploadPhoto(c *gin.Context) {
	_, id, ok := handler.RequireAdminAndParseID(c, "商户")
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "请选择要上传的文件")
		return
	}

	result, err := h.photoService.UploadMerchantPhoto(c.Request.Context(), id, file)
	handler.MustSucceed(c, err, result)
}

// AssignPlace 分配摊位
// @Summary 分配摊位
// @Tags 商户管理
// @Produce json
// @Security Bearer
// @Param id path int true "商户ID"
// @Param place_id path int true "摊位ID"
// @Success 200 {object} response.Response{data=market.PlaceDTO}
// @Router /admin/merchants/{id}/places/{place_id} [post]
func (h *MerchantHandler) AssignPlace(c *gin.Context) {
	_, id, ok := handler.RequireAdminAndParseID(c, "商户")
	if !ok {
		return
	}
	placeID, ok := handler.ParseParamID(c, "place_id", "摊位")
	if !ok {
		return
	}

	place, err := h.merchantService.AssignPlace(c.Request.Context(), id, placeID)
	handler.MustSucceed(c, err, place)
}

// ReleasePlace 释放摊位
// @Summary 释放摊位
// @Tags 商户管理
// @Produce json
// @Security Bearer
// @Param id path int true "商户ID"
// @Param place_id path int true "摊位ID"
// @Success 200 {object} response.Response
// @Router /admin/merchants/{id}/places/{place_id} [delete]
func (h *MerchantHandler) ReleasePlace(c *gin.Context) {
	_, id, ok := handler.RequireAdminAndParseID(c, "商户")
	if !ok {
		return
	}
	placeID, ok := handler.ParseParamID(c, "place_id", "摊位")
	if !ok {
		return
	}

	err := h.merchantService.ReleasePlace(c.Request.Context(), id, placeID)
	handler.MustSucceed(c, err, nil)
}

// CreateContract 新建合同
// @Summary 新建合同
// @Description 新合同成为商户的生效合同
// @Tags 合同管理
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "商户ID"
// @Param request body merchantService.CreateContractRequest true "请求参数"
// @Success 201 {object} response.Response{data=market.ContractDTO}
// @Router /admin/merchants/{id}/contracts [post]
func (h *MerchantHandler) CreateContract(c *gin.Context) {
	_, id, ok := handler.RequireAdminAndParseID(c, "商户")
	if !ok {
		return
	}

	var req merchantService.CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	contract, err := h.contractService.Create(c.Request.Context(), id, &req)
	handler.MustCreate(c, err, contract)
}

// ListContracts 商户合同列表
// @Summary 商户合同列表
// @Tags 合同管理
// @Produce json
// @Security Bearer
// @Param id path int true "商户ID"
// @Success 200 {object} response.Response{data=[]market.ContractDTO}
// @Router /admin/merchants/{id}/contracts [get]
func (h *MerchantHandler) ListContracts(c *gin.Context) {
	id, ok := handler.ParseID(c, "商户")
	if !ok {
		return
	}

	list, err := h.contractService.ListByMerchant(c.Request.Context(), id)
	handler.MustSucceed(c, err, list)
}

// RegisterRoutes 注册路由
func (h *MerchantHandler) RegisterRoutes(r *gin.RouterGroup) {
	merchants := r.Group("/merchants")
	{
		merchants.POST("", h.Create)
		merchants.GET("", h.List)
		merchants.GET("/:id", h.Get)
		merchants.PUT("/:id", h.Update)
		merchants.DELETE("/:id", h.Delete)
		merchants.GET("/:id/payment-summary", h.PaymentSummary)
		merchants.GET("/:id/qrcode", h.QRCode)
		merchants.POST("/:id/photo", middleware.RequestSizeLimiter(h.photoService.MaxSize()+multipartOverhead), h.UploadPhoto)
		merchants.POST("/:id/places/:place_id", h.AssignPlace)
		merchants.DELETE("/:id/places/:place_id", h.ReleasePlace)
		merchants.POST("/:id/contracts", h.CreateContract)
		merchants.GET("/:id/contracts", h.ListContracts)
	}
}
