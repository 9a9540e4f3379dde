package bunkerapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/seadatafocus/memp_backend/config"
	"github.com/seadatafocus/memp_backend/models"
	"github.com/seadatafocus/memp_backend/models/reports"
	"github.com/seadatafocus/memp_backend/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// respondError maps the model error taxonomy onto HTTP statuses. Anything
// outside the taxonomy is an upstream failure and stays opaque to the client.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrLedgerConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "concurrent ledger update detected, please resubmit"})
	default:
		config.LogError(config.GetLogger(), "handlers.go", "respondError", "unhandled", nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// bindError reports a payload that failed binding. Tag-level failures come
// back as a field -> rule map so the form can mark the offending inputs.
func bindError(c *gin.Context, err error) {
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "validation failed",
			"fields": utils.ProcessValidationErrors(fieldErrors),
		})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func paramInt(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func LastRobHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		shipId, ok := queryInt(c, "shipId")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "shipId is required"})
			return
		}
		category := models.BunkerCategory(c.Query("bunkerCategory"))
		itemTypeKey := c.Query("itemTypeKey")
		if itemTypeKey == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "itemTypeKey is required"})
			return
		}

		lastRob, err := models.GetLastRob(c.Request.Context(), shipId, category, itemTypeKey)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, lastRob)
	}
}

func LedgerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		shipId, ok := queryInt(c, "shipId")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "shipId is required"})
			return
		}
		category := models.BunkerCategory(c.Query("bunkerCategory"))
		itemTypeKey := c.Query("itemTypeKey")
		if itemTypeKey == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "itemTypeKey is required"})
			return
		}
		if !category.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bunkerCategory"})
			return
		}
		limit, _ := queryInt(c, "limit")
		offset, _ := queryInt(c, "offset")

		ops, err := models.ListBunkerOperations(c.Request.Context(), shipId, category, itemTypeKey, limit, offset)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"operations": ops})
	}
}

func CreateOperationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewBunkerOperation
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}

		op, err := models.CreateBunkerOperation(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, op)
	}
}

func UpdateSupplementaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		operationId, ok := paramInt(c, "id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid operation id"})
			return
		}
		var input models.SupplementaryUpdate
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}

		op, err := models.UpdateBunkerOperationSupplementary(c.Request.Context(), operationId, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, op)
	}
}

func BdnAvailabilityHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		shipId, ok := queryInt(c, "shipId")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "shipId is required"})
			return
		}
		fuelTypeKey := c.Query("fuelTypeKey")
		if fuelTypeKey == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "fuelTypeKey is required"})
			return
		}

		bdns, err := models.ListAvailableBdns(c.Request.Context(), shipId, fuelTypeKey, c.Query("asOfDate"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"bdns": bdns})
	}
}

func BdnAvailableHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		shipId, ok := queryInt(c, "shipId")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "shipId is required"})
			return
		}
		bdn := c.Param("bdn")

		availability, err := models.GetBdnAvailable(c.Request.Context(), shipId, bdn)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, availability)
	}
}

func CreateDosingEventHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewDosingEvent
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}

		event, err := models.CreateDosingEvent(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, event)
	}
}

func UpdateDosingEventHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		dosingEventId, ok := paramInt(c, "id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dosing event id"})
			return
		}
		var input models.NewDosingEvent
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}

		event, err := models.UpdateDosingEvent(c.Request.Context(), dosingEventId, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, event)
	}
}

func DeleteDosingEventHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		dosingEventId, ok := paramInt(c, "id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dosing event id"})
			return
		}
		if err := models.DeleteDosingEvent(c.Request.Context(), dosingEventId); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func GetDosingEventHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		dosingEventId, ok := paramInt(c, "id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dosing event id"})
			return
		}
		event, err := models.GetDosingEvent(c.Request.Context(), dosingEventId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, event)
	}
}

func ConsumptionAuditHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		dosingEventId, ok := paramInt(c, "id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dosing event id"})
			return
		}
		rows, err := models.GetConsumptionAudit(c.Request.Context(), dosingEventId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"audit": rows})
	}
}

func RobLedgerExportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		shipId, ok := queryInt(c, "shipId")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "shipId is required"})
			return
		}
		category := models.BunkerCategory(c.Query("bunkerCategory"))
		itemTypeKey := c.Query("itemTypeKey")
		if !category.IsValid() || itemTypeKey == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bunkerCategory and itemTypeKey are required"})
			return
		}

		c.Header("Content-Type", xlsxContentType)
		c.Header("Content-Disposition", "attachment; filename=rob-ledger.xlsx")
		if err := reports.WriteRobLedgerXlsx(c.Request.Context(), shipId, category, itemTypeKey, c.Writer); err != nil {
			respondError(c, err)
		}
	}
}

func ConsumptionAuditExportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		dosingEventId, ok := queryInt(c, "dosingEventId")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dosingEventId is required"})
			return
		}

		c.Header("Content-Type", xlsxContentType)
		c.Header("Content-Disposition", "attachment; filename=consumption-audit.xlsx")
		if err := reports.WriteConsumptionAuditXlsx(c.Request.Context(), dosingEventId, c.Writer); err != nil {
			respondError(c, err)
		}
	}
}
