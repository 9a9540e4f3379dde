package bunkerapi

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the ledger and allocation surface on the
// authenticated API group.
func RegisterRoutes(api *gin.RouterGroup) {
	rob := api.Group("/rob")
	{
		rob.GET("/last", LastRobHandler())
		rob.GET("/ledger", LedgerHandler())
		rob.POST("/operations", CreateOperationHandler())
		rob.PATCH("/operations/:id/supplementary", UpdateSupplementaryHandler())
	}

	bdn := api.Group("/bdn")
	{
		bdn.GET("/availability", BdnAvailabilityHandler())
		bdn.GET("/:bdn/available", BdnAvailableHandler())
	}

	dosing := api.Group("/dosing-events")
	{
		dosing.POST("", CreateDosingEventHandler())
		dosing.GET("/:id", GetDosingEventHandler())
		dosing.PUT("/:id", UpdateDosingEventHandler())
		dosing.DELETE("/:id", DeleteDosingEventHandler())
		dosing.GET("/:id/consumption-audit", ConsumptionAuditHandler())
	}

	reports := api.Group("/reports")
	{
		reports.GET("/rob-ledger.xlsx", RobLedgerExportHandler())
		reports.GET("/consumption-audit.xlsx", ConsumptionAuditExportHandler())
	}
}
