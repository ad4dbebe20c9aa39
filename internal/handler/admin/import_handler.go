package admin

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/market-merchant-backend/internal/common/handler"
	"github.com/dumeirei/market-merchant-backend/internal/common/logger"
	"github.com/dumeirei/market-merchant-backend/internal/common/response"
	"github.com/dumeirei/market-merchant-backend/internal/middleware"
	"github.com/dumeirei/market-merchant-backend/internal/service/importer"
)

// MaxImportFileSize 上传表格大小上限（20MB）
const MaxImportFileSize = 20 << 20

// multipartOverhead 表单边界与字段头的余量
const multipartOverhead = 1 << 20

// ImportHandler 商户表格导入处理器
type ImportHandler struct {
	importer *importer.Importer
}

// NewImportHandler 创建导入处理器
func NewImportHandler(imp *importer.Importer) *ImportHandler {
	return &ImportHandler{importer: imp}
}

// Import 导入商户表格
// @Summary 导入商户表格
// @Description 逐行导入商户，定位或参考数据不符的行只创建商户并返回警告
// @Tags 商户导入
// @Accept multipart/form-data
// @Produce json
// @Security Bearer
// @Param file formData file true "xlsx 文件"
// @Param sheet query string false "工作表名称"
// @Param dry_run query bool false "只校验不写入"
// @Success 200 {object} response.Response{data=importer.Report}
// @Router /admin/merchants/import [post]
func (h *ImportHandler) Import(c *gin.Context) {
	adminID, ok := handler.RequireAdminID(c)
	if !ok {
		return
	}

	dryRun := false
	if raw := c.Query("dry_run"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			response.BadRequest(c, "无效的 dry_run 参数")
			return
		}
		dryRun = v
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "请选择要上传的文件")
		return
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".xlsx") {
		response.BadRequest(c, "仅支持 xlsx 文件")
		return
	}
	if file.Size > MaxImportFileSize {
		response.BadRequest(c, "文件过大")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.BadRequest(c, "文件读取失败")
		return
	}
	defer f.Close()

	logger.Info("开始导入商户表格",
		logger.AdminID(adminID),
		logger.String("file", file.Filename),
		logger.Bool("dry_run", dryRun),
	)

	report, err := h.importer.Import(c.Request.Context(), f, importer.Options{
		Sheet:  c.Query("sheet"),
		DryRun: dryRun,
	})
	handler.MustSucceed(c, err, report)
}

// Template 下载导入模板
// @Summary 下载导入模板
// @Tags 商户导入
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security Bearer
// @Success 200 {file} binary
// @Router /admin/merchants/import/template [get]
func (h *ImportHandler) Template(c *gin.Context) {
	data, err := importer.Template()
	if handler.HandleError(c, err) {
		return
	}
	response.Attachment(c, "merchant_import_template.xlsx", xlsxContentType, data)
}

// RegisterRoutes 注册路由
func (h *ImportHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/merchants/import", middleware.RequestSizeLimiter(MaxImportFileSize+multipartOverhead), h.Import)
	r.GET("/merchants/import/template", h.Template)
}
