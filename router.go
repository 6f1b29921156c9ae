package main

import (
	"RTHub/config"
	"RTHub/module/control"
	"RTHub/service/hub"

	"github.com/gin-gonic/gin"
)

func newRouter(conf config.AppConfig, h *hub.Hub) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/ws", h.HandleWS)
	control.Register(r, h, conf.CtrlSecret, conf.BusDriver)
	return r
}
