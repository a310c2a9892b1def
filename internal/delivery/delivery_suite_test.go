package delivery

import (
	"testing"

	"github.com/RedHatInsights/identity-event-forwarder/internal/platform/logger"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestDelivery(t *testing.T) {
	RegisterFailHandler(Fail)
	logger.InitLogger()
	RunSpecs(t, "Delivery Suite")
}
