package apihttp

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

func registerRoutes(api *gin.RouterGroup, loop Loop, journal Journal) {
	api.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, loop.Status())
	})

	api.GET("/portfolio", func(c *gin.Context) {
		pf := loop.Portfolio()
		c.JSON(http.StatusOK, gin.H{
			"initial_capital": pf.InitialCapital,
			"realized_pnl":    pf.RealizedPnL,
			"daily_realized":  pf.DailyRealized,
			"equity_high":     pf.EquityHigh,
			"valuation":       loop.Valuation(),
		})
	})

	api.GET("/trades", func(c *gin.Context) {
		if journal == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "journal not available"})
			return
		}
		rows, err := journal.Trades(c.Request.Context(), queryInt(c, "limit", 100))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rows)
	})

	api.POST("/risk/reset", func(c *gin.Context) {
		loop.ResetBreaker()
		c.JSON(http.StatusOK, gin.H{"breaker": loop.Status().Breaker})
	})

	api.GET("/report/equity", func(c *gin.Context) {
		if journal == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "journal not available"})
			return
		}
		points, err := journal.EquityCurve(c.Request.Context(), queryInt(c, "limit", 1000))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{Title: "Equity Curve"}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
			charts.WithXAxisOpts(opts.XAxis{Name: "time"}),
			charts.WithYAxisOpts(opts.YAxis{Name: "VND", Scale: opts.Bool(true)}),
		)

		labels := make([]string, 0, len(points))
		equity := make([]opts.LineData, 0, len(points))
		cash := make([]opts.LineData, 0, len(points))
		for _, p := range points {
			labels = append(labels, p.At.Format(time.DateTime))
			equity = append(equity, opts.LineData{Value: p.Equity})
			cash = append(cash, opts.LineData{Value: p.Cash})
		}
		line.SetXAxis(labels).
			AddSeries("equity", equity).
			AddSeries("cash", cash)

		c.Status(http.StatusOK)
		c.Header("Content-Type", "text/html; charset=utf-8")
		if err := line.Render(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
	})
}
