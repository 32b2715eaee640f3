// cmd/imagetool/main.go
package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
