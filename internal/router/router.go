package router

import (
	"context"
	"errors"
	"net/http"
	"time"

	"order_service/internal/ingest"
	"order_service/internal/metrics"
	"order_service/internal/model"
	"order_service/internal/queue"
	"order_service/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// maxListenerWait 是 /listener/latest 的最长等待时间。
const maxListenerWait = 30 * time.Second

// OrderReader 是查询接口需要的存储能力。
type OrderReader interface {
	Exists(ctx context.Context, orderID string) (bool, error)
	Get(ctx context.Context, orderID string) (*model.Order, error)
}

// Deps 路由依赖。Listener、RateLimit、Gatherer 可为空，对应路由或中间件不注册。
type Deps struct {
	Ingest    *ingest.Service
	Orders    OrderReader
	Listener  *queue.Listener
	RateLimit gin.HandlerFunc
	Gatherer  prometheus.Gatherer
}

// Setup 注册全部 HTTP 路由。
func Setup(r *gin.Engine, d Deps) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "pong"})
	})

	submit := []gin.HandlerFunc{submitOrder(d.Ingest)}
	if d.RateLimit != nil {
		submit = append([]gin.HandlerFunc{d.RateLimit}, submit...)
	}
	r.POST("/orders", submit...)
	r.GET("/orders/:order_id", getOrder(d.Orders))
	r.GET("/orders/:order_id/exists", orderExists(d.Orders))
	r.GET("/listener/latest", latestDelivery(d.Listener))

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(d.Gatherer)))
	}
}

type submitOrderRequest struct {
	OrderID string  `json:"order_id"`
	UserID  string  `json:"user_id"`
	Amount  float64 `json:"amount"`
}

// submitOrder 下单入口：先落库再发布。不做字段校验，
// 空 order_id 由存储层拒绝。
func submitOrder(svc *ingest.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req submitOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		conf, err := svc.SubmitOrder(c.Request.Context(), model.Order{
			OrderID: req.OrderID,
			UserID:  req.UserID,
			Amount:  req.Amount,
		})
		if err != nil {
			status := submitStatus(err)
			var ie *ingest.Error
			stored := errors.As(err, &ie) && ie.Stored()
			c.JSON(status, gin.H{
				"code": status,
				"msg":  err.Error(),
				"data": gin.H{"order_id": req.OrderID, "stored": stored},
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"code": 0,
			"msg":  "order saved and posted successfully",
			"data": gin.H{
				"order_id": conf.OrderID,
				"topic":    conf.Topic,
			},
		})
	}
}

// submitStatus 将下单错误映射为 HTTP 状态码。
func submitStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrEmptyOrderID):
		return http.StatusBadRequest
	case errors.Is(err, ingest.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ingest.ErrPublishFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func getOrder(orders OrderReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := orders.Get(c.Request.Context(), c.Param("order_id"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": o})
	}
}

func orderExists(orders OrderReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := orders.Exists(c.Request.Context(), c.Param("order_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{"exists": ok}})
	}
}

// latestDelivery 返回 listener 最近收到的消息。
// wait 指定等待第一条消息的时长（上限 30s），不传则立即返回。
func latestDelivery(l *queue.Listener) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "listener disabled"})
			return
		}

		var wait time.Duration
		if raw := c.Query("wait"); raw != "" {
			d, err := time.ParseDuration(raw)
			if err != nil || d < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "wait must be a non-negative duration, e.g. 5s"})
				return
			}
			wait = min(d, maxListenerWait)
		}

		d, ok := l.Latest()
		if !ok && wait > 0 {
			ctx, cancel := context.WithTimeout(c.Request.Context(), wait)
			defer cancel()
			var err error
			d, err = l.Await(ctx)
			ok = err == nil
		}
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "no message received yet"})
			return
		}

		data := gin.H{"delivery": d, "payload": string(d.Payload)}
		if msg, err := d.Decode(); err == nil {
			data["order"] = msg
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": data})
	}
}
