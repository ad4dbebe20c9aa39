package admin

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/market-merchant-backend/internal/common/handler"
	"github.com/dumeirei/market-merchant-backend/internal/common/response"
	catalogService "github.com/dumeirei/market-merchant-backend/internal/service/catalog"
)

// LocationHandler 市场层级（市场 / 区域 / 大厅 / 摊位）管理处理器
type LocationHandler struct {
	locationService *catalogService.LocationService
}

// NewLocationHandler 创建市场层级管理处理器
func NewLocationHandler(locationSvc *catalogService.LocationService) *LocationHandler {
	return &LocationHandler{locationService: locationSvc}
}

// parentFilter 读取可选的上级 ID 查询参数，缺省为 0
func parentFilter(c *gin.Context, param, name string) (int64, bool) {
	id, ok := handler.ParseQueryID(c, param, name)
	if !ok {
		return 0, false
	}
	if id == nil {
		return 0, true
	}
	return *id, true
}

// ---------------------------------------------------------------------------
// 市场
// ---------------------------------------------------------------------------

// CreateMarchee 创建市场
// @Summary 创建市场
// @Tags 市场层级
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body catalogService.MarcheeRequest true "请求参数"
// @Success 201 {object} response.Response{data=models.Marchee}
// @Router /admin/marchees [post]
func (h *LocationHandler) CreateMarchee(c *gin.Context) {
	var req catalogService.MarcheeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	marchee, err := h.locationService.CreateMarchee(c.Request.Context(), &req)
	handler.MustCreate(c, err, marchee)
}

// ListMarchees 市场列表
// @Summary 市场列表
// @Tags 市场层级
// @Produce json
// @Security Bearer
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param keyword query string false "名称"
// @Success 200 {object} response.Response{data=response.PageData{list=[]models.Marchee}}
// @Router /admin/marchees [get]
func (h *LocationHandler) ListMarchees(c *gin.Context) {
	p := handler.BindPagination(c)

	list, total, err := h.locationService.ListMarchees(c.Request.Context(), p.GetOffset(), p.GetLimit(), c.Query("keyword"))
	handler.MustSucceedPage(c, err, list, total, p.Page, p.PageSize)
}

// GetMarchee 市场详情
// @Summary 市场详情
// @Tags 市场层级
// @Produce json
// @Security Bearer
// @Param id path int true "市场ID"
// @Success 200 {object} response.Response{data=models.Marchee}
// @Router /admin/marchees/{id} [get]
func (h *LocationHandler) GetMarchee(c *gin.Context) {
	id, ok := handler.ParseID(c, "市场")
	if !ok {
		return
	}

	marchee, err := h.locationService.GetMarchee(c.Request.Context(), id)
	handler.MustSucceed(c, err, marchee)
}

// UpdateMarchee 更新市场
// @Summary 更新市场
// @Tags 市场层级
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "市场ID"
// @Param request body catalogService.MarcheeRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.Marchee}
// @Router /admin/marchees/{id} [put]
func (h *LocationHandler) UpdateMarchee(c *gin.Context) {
	id, ok := handler.ParseID(c, "市场")
	if !ok {
		return
	}

	var req catalogService.MarcheeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	marchee, err := h.locationService.UpdateMarchee(c.Request.Context(), id, &req)
	handler.MustSucceed(c, err, marchee)
}

// DeleteMarchee 删除市场
// @Summary 删除市场
// @Description 仍有区域、大厅或摊位引用的市场不能删除
// @Tags 市场层级
// @Produce json
// @Security Bearer
// @Param id path int true "市场ID"
// @Success 200 {object} response.Response
// @Router /admin/marchees/{id} [delete]
func (h *LocationHandler) DeleteMarchee(c *gin.Context) {
	id, ok := handler.ParseID(c, "市场")
	if !ok {
		return
	}

	err := h.locationService.DeleteMarchee(c.Request.Context(), id)
	handler.MustSucceed(c, err, nil)
}

// ---------------------------------------------------------------------------
// 区域
// ---------------------------------------------------------------------------

// CreateZone 创建区域
// @Summary 创建区域
// @Tags 市场层级
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body catalogService.ZoneRequest true "请求参数"
// @Success 201 {object} response.Response{data=models.Zone}
// @Router /admin/zones [post]
func (h *LocationHandler) CreateZone(c *gin.Context) {
	var req catalogService.ZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	zone, err := h.locationService.CreateZone(c.Request.Context(), &req)
	handler.MustCreate(c, err, zone)
}

// ListZones 区域列表
// @Summary 区域列表
// @Tags 市场层级
// @Produce json
// @Security Bearer
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param keyword query string false "名称"
// @Param marchee_id query int false "市场ID"
// @Success 200 {object} response.Response{data=response.PageData{list=[]models.Zone}}
// @Router /admin/zones [get]
func (h *LocationHandler) ListZones(c *gin.Context) {
	marcheeID, ok := parentFilter(c, "marchee_id", "市场")
	if !ok {
		return
	}
	p := handler.BindPagination(c)

	list, total, err := h.locationService.ListZones(c.Request.Context(), p.GetOffset(), p.GetLimit(), c.Query("keyword"), marcheeID)
	handler.MustSucceedPage(c, err, list, total, p.Page, p.PageSize)
}

// GetZone 区域详情
// @Summary 区域详情
// @Tags 市场层级
// @Produce json
// @Security Bearer
// @Param id path int true "区域ID"
// @Success 200 {object} response.Response{data=models.Zone}
// @Router /admin/zones/{id} [get]
func (h *LocationHandler) GetZone(c *gin.Context) {
	id, ok := handler.ParseID(c, "区域")
	if !ok {
		return
	}

	zone, err := h.locationService.GetZone(c.Request.Context(), id)
	handler.MustSucceed(c, err, zone)
}

// UpdateZone 更新区域
// @Summary 更新区域
// @Tags 市场层级
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "区域ID"
// @Param request body catalogService.ZoneRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.Zone}
// @Router /admin/zones/{id} [put]
func (h *LocationHandler) UpdateZone(c *gin.Context) {
	id, ok := handler.ParseID(c, "区域")
	if !ok {
		return
	}

	var req catalogService.ZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	zone, err := h.locationService.UpdateZone(c.Request.Context(), id, &req)
	handler.MustSucceed(c, err, zone)
}

// DeleteZone 删除区域
// @Summary 删除区域
// @Tags 市场层级
// @Produce json
// @Security Bearer
// @Param id path int true "区域ID"
// @Success 200 {object} response.Response
// @Router /admin/zones/{id} [delete]
func (h *LocationHandler) DeleteZone(c *gin.Context) {
	id, ok := handler.ParseID(c, "区域")
	if !ok {
		return
	}

	err := h.locationService.DeleteZone(c.Request.Context(), id)
	handler.MustSucceed(c, err, nil)
}

// ---------------------------------------------------------------------------
// 大厅
// ---------------------------------------------------------------------------

// CreateHall 创建大厅
// @Summary 创建大厅
// @Tags 市场层级
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body catalogService.HallRequest true "请求参数"
// @Success 201 {object} response.Response{data=models.Hall}
// @Router /admin/halls [post]
func (h *LocationHandler) CreateHall(c *gin.Context) {
	var req catalogService.HallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	hall, err := h.locationService.CreateHall(c.Request.Context(), &req)
	handler.MustCreate(c, err, hall)
}

// ListHalls 大厅列表
// @Summary 大厅列表
// @Tags 市场层级
// @Produce json
// @Security Bearer
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param keyword query string false "名称"
// @Param zone_id query int false "区域ID"
// @Success 200 {object} response.Response{data=response.PageData{list=[]models.Hall}}
// @Router /admin/halls [get]
func (h *LocationHandler) ListHalls(c *gin.Context) {
	zoneID, ok := parentFilter(c, "zone_id", "区域")
	if !ok {
		return
	}
	p := handler.BindPagination(c)

	list, total, err := h.locationService.ListHalls(c.Request.Context(), p.GetOffset(), p.GetLimit(), c.Query("keyword"), zoneID)
	handler.MustSucceedPage(c, err, list, total, p.Page, p.PageSize)
}

// GetHall 大厅详情
// @Summary 大厅详情
// @Tags 市场层级
// @Produce json
// @Security Bearer
// @Param id path int true "大厅ID"
// @Success 200 {object} response.Response{data=models.Hall}
// @Router /admin/halls/{id} [get]
func (h *LocationHandler) GetHall(c *gin.Context) {
	id, ok := handler.ParseID(c, "大厅")
	if !ok {
		return
	}

	hall, err := h.locationService.GetHall(c.Request.Context(), id)
	handler.MustSucceed(c, err, hall)
}

// UpdateHall 更新大厅
// @Summary 更新大厅
// @Tags 市场层级
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "大厅ID"
// @Param request body catalogService.HallRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.Hall}
// @Router /admin/halls/{id} [put]
func (h *LocationHandler) UpdateHall(c *gin.Context) {
	id, ok := handler.ParseID(c, "大厅")
	if !ok {
		return
	}

	var req catalogService.HallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	hall, err := h.locationService.UpdateHall(c.Request.Context(), id, &req)
	handler.MustSucceed(c, err, hall)
}

// DeleteHall 删除大厅
// @Summary 删除大厅
// @Tags 市场层级
// @Produce json
// @Security Bearer
// @Param id path int true "大厅ID"
// @Success 200 {object} response.Response
// @Router /admin/halls/{id} [delete]
func (h *LocationHandler) DeleteHall(c *gin.Context) {
	id, ok := handler.ParseID(c, "大厅")
	if !ok {
		return
	}

	err := h.locationService.DeleteHall(c.Request.Context(), id)
	handler.MustSucceed(c, err, nil)
}

// ---------------------------------------------------------------------------
// 摊位
// ---------------------------------------------------------------------------

// CreatePlace 创建摊位
// @Summary 创建摊位
// @Description 摊位必须且只能挂在大厅、区域、市场其中之一
// @Tags 市场层级
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body catalogService.PlaceRequest true "请求参数"
// @Success 201 {object} response.Response{data=market.PlaceDTO}
// @Router /admin/places [post]
func (h *LocationHandler) CreatePlace(c *gin.Context) {
	var req catalogService.PlaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	place, err := h.locationService.CreatePlace(c.Request.Context(), &req)
	handler.MustCreate(c, err, place)
}

// ListPlaces 摊位列表
// @Summary 摊位列表
// @Tags 市场层级
// @Produce json
// @Security Bearer
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param keyword query string false "名称"
// @Param hall_id query int false "大厅ID"
// @Param zone_id query int false "区域ID"
// @Param marchee_id query int false "市场ID"
// @Param free query bool false "仅空闲摊位"
// @Success 200 {object} response.Response{data=response.PageData{list=[]market.PlaceDTO}}
// @Router /admin/places [get]
func (h *LocationHandler) ListPlaces(c *gin.Context) {
	filters := map[string]interface{}{}
	if keyword := c.Query("keyword"); keyword != "" {
		filters["keyword"] = keyword
	}
	for _, parent := range []struct{ param, name string }{
		{"hall_id", "大厅"}, {"zone_id", "区域"}, {"marchee_id", "市场"},
	} {
		id, ok := parentFilter(c, parent.param, parent.name)
		if !ok {
			return
		}
		if id > 0 {
			filters[parent.param] = id
		}
	}
	if freeStr := c.Query("free"); freeStr != "" {
		free, err := strconv.ParseBool(freeStr)
		if err != nil {
			response.BadRequest(c, "无效的 free 参数")
			return
		}
		filters["free"] = free
	}

	p := handler.BindPagination(c)
	list, total, err := h.locationService.ListPlaces(c.Request.Context(), p.GetOffset(), p.GetLimit(), filters)
	handler.MustSucceedPage(c, err, list, total, p.Page, p.PageSize)
}

// GetPlace 摊位详情
// @Summary 摊位详情
// @Tags 市场层级
// @Produce json
// @Security Bearer
// @Param id path int true "摊位ID"
// @Success 200 {object} response.Response{data=market.PlaceDTO}
// @Router /admin/places/{id} [get]
func (h *LocationHandler) GetPlace(c *gin.Context) {
	id, ok := handler.ParseID(c, "摊位")
	if !ok {
		return
	}

	place, err := h.locationService.GetPlace(c.Request.Context(), id)
	handler.MustSucceed(c, err, place)
}

// UpdatePlace 更新摊位
// @Summary 更新摊位
// @Tags 市场层级
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "摊位ID"
// @Param request body catalogService.PlaceRequest true "请求参数"
// @Success 200 {object} response.Response{data=market.PlaceDTO}
// @Router /admin/places/{id} [put]
func (h *LocationHandler) UpdatePlace(c *gin.Context) {
	id, ok := handler.ParseID(c, "摊位")
	if !ok {
		return
	}

	var req catalogService.PlaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	place, err := h.locationService.UpdatePlace(c.Request.Context(), id, &req)
	handler.MustSucceed(c, err, place)
}

// DeletePlace 删除摊位
// @Summary 删除摊位
// @Description 已分配给商户的摊位不能删除
// @Tags 市场层级
// @Produce json
// @Security Bearer
// @Param id path int true "摊位ID"
// @Success 200 {object} response.Response
// @Router /admin/places/{id} [delete]
func (h *LocationHandler) DeletePlace(c *gin.Context) {
	id, ok := handler.ParseID(c, "摊位")
	if !ok {
		return
	}

	err := h.locationService.DeletePlace(c.Request.Context(), id)
	handler.MustSucceed(c, err, nil)
}

// RegisterRoutes 注册路由
func (h *LocationHandler) RegisterRoutes(r *gin.RouterGroup) {
	marchees := r.Group("/marchees")
	{
		marchees.POST("", h.CreateMarchee)
		marchees.GET("", h.ListMarchees)
		marchees.GET("/:id", h.GetMarchee)
		marchees.PUT("/:id", h.UpdateMarchee)
		marchees.DELETE("/:id", h.DeleteMarchee)
	}

	zones := r.Group("/zones")
	{
		zones.POST("", h.CreateZone)
		zones.GET("", h.ListZones)
		zones.GET("/:id", h.GetZone)
		zones.PUT("/:id", h.UpdateZone)
		zones.DELETE("/:id", h.DeleteZone)
	}

	halls := r.Group("/halls")
	{
		halls.POST("", h.CreateHall)
		halls.GET("", h.ListHalls)
		halls.GET("/:id", h.GetHall)
		halls.PUT("/:id", h.UpdateHall)
		halls.DELETE("/:id", h.DeleteHall)
	}

	places := r.Group("/places")
	{
		places.POST("", h.CreatePlace)
		places.GET("", h.ListPlaces)
		places.GET("/:id", h.GetPlace)
		places.PUT("/:id", h.UpdatePlace)
		places.DELETE("/:id", h.DeletePlace)
	}
}
