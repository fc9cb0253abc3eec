package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"

	"github.com/golang/glog"

	fx "github.com/robotalks/cobslink/pkg/framework"
	"github.com/robotalks/cobslink/pkg/monitor"
)

func init() {
	monitor.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	m := monitor.NewConfig().MustNew()
	if err := fx.NewRunner().HandleSignals().Go(m).Wait(); err != nil {
		log.Fatalln(err)
	}
}
