package handler

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/vehicle-api/internal/domain/entity"
	"github.com/yourusername/vehicle-api/internal/handler/dto"
	"github.com/yourusername/vehicle-api/internal/middleware"
	"github.com/yourusername/vehicle-api/internal/service"
)

// ContextVehicleID: ключ контекста для ID записи из URL
const ContextVehicleID = "vehicleID"

// VehicleManager описывает операции над записями, используемые обработчиком
type VehicleManager interface {
	List(vehicleType string, page, pageSize int) (*service.VehiclePage, error)
	ListAll(vehicleType string) ([]entity.Vehicle, error)
	Get(id uint) (*entity.Vehicle, error)
	Create(ctx context.Context, actorID uint, input service.VehicleInput) (*entity.Vehicle, error)
	Update(ctx context.Context, actorID, id uint, input service.VehicleInput) (*entity.Vehicle, error)
	Delete(ctx context.Context, actorID, id uint) error
}

// VehicleHandler обрабатывает запросы к записям о транспортных средствах.
// Права доступа проверяются middleware до вызова обработчика.
type VehicleHandler struct {
	vehicles VehicleManager
}

// NewVehicleHandler создает обработчик записей
func NewVehicleHandler(vehicles VehicleManager) *VehicleHandler {
	return &VehicleHandler{vehicles: vehicles}
}

// ListVehicles возвращает страницу записей
// GET /api/vehicles?page=1&page_size=20&type=Two
func (h *VehicleHandler) ListVehicles(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(service.DefaultPageSize)))

	result, err := h.vehicles.List(c.Query("type"), page, pageSize)
	if err != nil {
		handleError(c, "VehicleHandler", err)
		return
	}

	items := make([]dto.VehicleDTO, 0, len(result.Items))
	for i := range result.Items {
		items = append(items, dto.NewVehicleDTO(&result.Items[i]))
	}

	c.JSON(http.StatusOK, dto.PaginatedVehiclesResponse{
		Vehicles: items,
		Total:    result.Total,
		Page:     result.Page,
		PerPage:  result.PageSize,
	})
}

// GetVehicle возвращает запись по ID
func (h *VehicleHandler) GetVehicle(c *gin.Context) {
	vehicle, err := h.vehicles.Get(c.MustGet(ContextVehicleID).(uint))
	if err != nil {
		handleError(c, "VehicleHandler", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewVehicleDTO(vehicle))
}

// CreateVehicle создает запись
func (h *VehicleHandler) CreateVehicle(c *gin.Context) {
	var req service.VehicleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	actorID, _ := middleware.CurrentUserID(c)
	vehicle, err := h.vehicles.Create(c.Request.Context(), actorID, req)
	if err != nil {
		handleError(c, "VehicleHandler", err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewVehicleDTO(vehicle))
}

// UpdateVehicle заменяет поля записи
func (h *VehicleHandler) UpdateVehicle(c *gin.Context) {
	var req service.VehicleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	actorID, _ := middleware.CurrentUserID(c)
	vehicle, err := h.vehicles.Update(c.Request.Context(), actorID, c.MustGet(ContextVehicleID).(uint), req)
	if err != nil {
		handleError(c, "VehicleHandler", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewVehicleDTO(vehicle))
}

// DeleteVehicle удаляет запись
func (h *VehicleHandler) DeleteVehicle(c *gin.Context) {
	actorID, _ := middleware.CurrentUserID(c)
	if err := h.vehicles.Delete(c.Request.Context(), actorID, c.MustGet(ContextVehicleID).(uint)); err != nil {
		handleError(c, "VehicleHandler", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportVehicles выгружает все записи в CSV или Excel
// GET /api/vehicles/export?format=csv|xlsx&type=Two
func (h *VehicleHandler) ExportVehicles(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Unsupported export format",
			"error_type": "validation_error",
			"fields":     gin.H{"format": "must be csv or xlsx"},
		})
		return
	}

	vehicles, err := h.vehicles.ListAll(c.Query("type"))
	if err != nil {
		handleError(c, "VehicleHandler", err)
		return
	}

	filename := fmt.Sprintf("vehicles_%s", time.Now().Format("2006-01-02"))
	if format == "xlsx" {
		h.exportXLSX(c, vehicles, filename)
		return
	}
	h.exportCSV(c, vehicles, filename)
}

var exportHeaders = []string{"ID", "Vehicle Number", "Vehicle Type", "Model", "Description", "Created At", "Updated At"}

func exportRow(v *entity.Vehicle) []string {
	return []string{
		strconv.FormatUint(uint64(v.ID), 10),
		sanitizeForExcel(v.VehicleNumber),
		v.VehicleType.Label(),
		sanitizeForExcel(v.Model),
		sanitizeForExcel(v.Description),
		v.CreatedAt.UTC().Format(time.RFC3339),
		v.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// exportCSV выгружает записи в CSV с правильным экранированием спецсимволов
func (h *VehicleHandler) exportCSV(c *gin.Context, vehicles []entity.Vehicle, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write(exportHeaders)
	for i := range vehicles {
		writer.Write(exportRow(&vehicles[i]))
	}
}

// exportXLSX выгружает записи в Excel с использованием StreamWriter
func (h *VehicleHandler) exportXLSX(c *gin.Context, vehicles []entity.Vehicle, filename string) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Vehicles"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[VehicleHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file", "error_type": "internal_server_error"})
		return
	}

	headers := make([]interface{}, len(exportHeaders))
	for i, h := range exportHeaders {
		headers[i] = h
	}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[VehicleHandler] Ошибка записи заголовков: %v", err)
	}

	for i := range vehicles {
		rowNum := i + 2
		values := exportRow(&vehicles[i])
		row := make([]interface{}, len(values))
		row[0] = vehicles[i].ID
		for j := 1; j < len(values); j++ {
			row[j] = values[j]
		}
		if err := sw.SetRow(fmt.Sprintf("A%d", rowNum), row); err != nil {
			log.Printf("[VehicleHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[VehicleHandler] Ошибка при Flush: %v", err)
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[VehicleHandler] Ошибка записи Excel в response: %v", err)
	}
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}
