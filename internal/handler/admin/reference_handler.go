package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/market-merchant-backend/internal/common/handler"
	"github.com/dumeirei/market-merchant-backend/internal/common/response"
	catalogService "github.com/dumeirei/market-merchant-backend/internal/service/catalog"
)

// ReferenceHandler 经营类别与年费档位管理处理器
type ReferenceHandler struct {
	referenceService *catalogService.ReferenceService
}

// NewReferenceHandler 创建参考数据管理处理器
func NewReferenceHandler(referenceSvc *catalogService.ReferenceService) *ReferenceHandler {
	return &ReferenceHandler{referenceService: referenceSvc}
}

// CreateCategory 创建经营类别
// @Summary 创建经营类别
// @Tags 参考数据
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body catalogService.CategoryRequest true "请求参数"
// @Success 201 {object} response.Response{data=models.Category}
// @Router /admin/categories [post]
func (h *ReferenceHandler) CreateCategory(c *gin.Context) {
	var req catalogService.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	category, err := h.referenceService.CreateCategory(c.Request.Context(), &req)
	handler.MustCreate(c, err, category)
}

// ListCategories 经营类别列表
// @Summary 经营类别列表
// @Tags 参考数据
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response{data=[]models.Category}
// @Router /admin/categories [get]
func (h *ReferenceHandler) ListCategories(c *gin.Context) {
	list, err := h.referenceService.ListCategories(c.Request.Context())
	handler.MustSucceed(c, err, list)
}

// GetCategory 经营类别详情
// @Summary 经营类别详情
// @Tags 参考数据
// @Produce json
// @Security Bearer
// @Param id path int true "类别ID"
// @Success 200 {object} response.Response{data=models.Category}
// @Router /admin/categories/{id} [get]
func (h *ReferenceHandler) GetCategory(c *gin.Context) {
	id, ok := handler.ParseID(c, "类别")
	if !ok {
		return
	}

	category, err := h.referenceService.GetCategory(c.Request.Context(), id)
	handler.MustSucceed(c, err, category)
}

// UpdateCategory 更新经营类别
// @Summary 更新经营类别
// @Tags 参考数据
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "类别ID"
// @Param request body catalogService.CategoryRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.Category}
// @Router /admin/categories/{id} [put]
func (h *ReferenceHandler) UpdateCategory(c *gin.Context) {
	id, ok := handler.ParseID(c, "类别")
	if !ok {
		return
	}

	var req catalogService.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	category, err := h.referenceService.UpdateCategory(c.Request.Context(), id, &req)
	handler.MustSucceed(c, err, category)
}

// DeleteCategory 删除经营类别
// @Summary 删除经营类别
// @Description 被合同引用的类别不能删除
// @Tags 参考数据
// @Produce json
// @Security Bearer
// @Param id path int true "类别ID"
// @Success 200 {object} response.Response
// @Router /admin/categories/{id} [delete]
func (h *ReferenceHandler) DeleteCategory(c *gin.Context) {
	id, ok := handler.ParseID(c, "类别")
	if !ok {
		return
	}

	err := h.referenceService.DeleteCategory(c.Request.Context(), id)
	handler.MustSucceed(c, err, nil)
}

// CreateAnnualFee 创建年费档位
// @Summary 创建年费档位
// @Tags 参考数据
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body catalogService.AnnualFeeRequest true "请求参数"
// @Success 201 {object} response.Response{data=models.AnnualFee}
// @Router /admin/annual-fees [post]
func (h *ReferenceHandler) CreateAnnualFee(c *gin.Context) {
	var req catalogService.AnnualFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	fee, err := h.referenceService.CreateAnnualFee(c.Request.Context(), &req)
	handler.MustCreate(c, err, fee)
}

// ListAnnualFees 年费档位列表
// @Summary 年费档位列表
// @Tags 参考数据
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response{data=[]models.AnnualFee}
// @Router /admin/annual-fees [get]
func (h *ReferenceHandler) ListAnnualFees(c *gin.Context) {
	list, err := h.referenceService.ListAnnualFees(c.Request.Context())
	handler.MustSucceed(c, err, list)
}

// GetAnnualFee 年费档位详情
// @Summary 年费档位详情
// @Tags 参考数据
// @Produce json
// @Security Bearer
// @Param id path int true "年费ID"
// @Success 200 {object} response.Response{data=models.AnnualFee}
// @Router /admin/annual-fees/{id} [get]
func (h *ReferenceHandler) GetAnnualFee(c *gin.Context) {
	id, ok := handler.ParseID(c, "年费")
	if !ok {
		return
	}

	fee, err := h.referenceService.GetAnnualFee(c.Request.Context(), id)
	handler.MustSucceed(c, err, fee)
}

// UpdateAnnualFee 更新年费档位
// @Summary 更新年费档位
// @Tags 参考数据
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "年费ID"
// @Param request body catalogService.AnnualFeeRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.AnnualFee}
// @Router /admin/annual-fees/{id} [put]
func (h *ReferenceHandler) UpdateAnnualFee(c *gin.Context) {
	id, ok := handler.ParseID(c, "年费")
	if !ok {
		return
	}

	var req catalogService.AnnualFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	fee, err := h.referenceService.UpdateAnnualFee(c.Request.Context(), id, &req)
	handler.MustSucceed(c, err, fee)
}

// DeleteAnnualFee 删除年费档位
// @Summary 删除年费档位
// @Tags 参考数据
// @Produce json
// @Security Bearer
// @Param id path int true "年费ID"
// @Success 200 {object} response.Response
// @Router /admin/annual-fees/{id} [delete]
func (h *ReferenceHandler) DeleteAnnualFee(c *gin.Context) {
	id, ok := handler.ParseID(c, "年费")
	if !ok {
		return
	}

	err := h.referenceService.DeleteAnnualFee(c.Request.Context(), id)
	handler.MustSucceed(c, err, nil)
}

// RegisterRoutes 注册只读路由
func (h *ReferenceHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/categories", h.ListCategories)
	r.GET("/categories/:id", h.GetCategory)
	r.GET("/annual-fees", h.ListAnnualFees)
	r.GET("/annual-fees/:id", h.GetAnnualFee)
}

// RegisterManageRoutes 注册维护路由
func (h *ReferenceHandler) RegisterManageRoutes(r *gin.RouterGroup) {
	categories := r.Group("/categories")
	{
		categories.POST("", h.CreateCategory)
		categories.PUT("/:id", h.UpdateCategory)
		categories.DELETE("/:id", h.DeleteCategory)
	}

	fees := r.Group("/annual-fees")
	{
		fees.POST("", h.CreateAnnualFee)
		fees.PUT("/:id", h.UpdateAnnualFee)
		fees.DELETE("/:id", h.DeleteAnnualFee)
	}
}
