package main

import (
	"log"

	"github.com/nahlund/backend/tileserver/internal/app"
	"github.com/nahlund/backend/tileserver/pkg/config"
)

func main() {
	realMain()
}

func realMain() {
	cfg, err := config.New()
	if err != nil {
		log.Fatalln("failed to load config: ", err)
	}

	app.Run(cfg)
}
