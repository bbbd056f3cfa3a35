package ibi

import (
	"testing"

	g "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
)

func TestIBI(t *testing.T) {
	logrus.SetLevel(logrus.WarnLevel)
	RegisterFailHandler(g.Fail)
	g.RunSpecs(t, "IBI Controller Suite")
}
