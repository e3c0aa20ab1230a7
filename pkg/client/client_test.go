package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/jarcoal/httpmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kdious/smartcar-proxy/internal/dispatcher"
	"github.com/kdious/smartcar-proxy/internal/gmtest"
	"github.com/kdious/smartcar-proxy/pkg/adapter"
	"github.com/kdious/smartcar-proxy/pkg/adapter/gm"
	"github.com/kdious/smartcar-proxy/pkg/client"
	"github.com/kdious/smartcar-proxy/pkg/connector"
	"github.com/kdious/smartcar-proxy/pkg/connector/inet"
	"github.com/kdious/smartcar-proxy/pkg/proxy"
)

func proxyError(status int, body string) *client.Error {
	return &client.Error{Status: status, Body: body}
}

var _ = Describe("Client", func() {
	It("rejects URLs it cannot address", func() {
		for _, u := range []string{"", "localhost:8080", "ftp://example.com", "http://", "::"} {
			_, err := client.New(u)
			Expect(err).To(MatchError(client.ErrInvalidURL), u)
		}
	})

	It("formats proxy errors with and without a body", func() {
		Expect(proxyError(404, "Vehicle id: abcd not found.").Error()).To(Equal("proxy returned HTTP 404: Vehicle id: abcd not found."))
		Expect(proxyError(502, "").Error()).To(Equal("proxy returned HTTP 502"))
	})

	Context("against a running proxy", func() {
		var (
			sim *gmtest.Server
			c   *client.Client
			ctx context.Context
		)

		BeforeEach(func() {
			sim = gmtest.NewServer()
			vendor := sim.Start()
			DeferCleanup(vendor.Close)
			conn, err := inet.NewConnection(vendor.URL, vendor.Client())
			Expect(err).NotTo(HaveOccurred())
			d := dispatcher.New(gm.New(conn), dispatcher.Options{Timeout: 2 * time.Second})
			DeferCleanup(d.Close)
			server := httptest.NewServer(proxy.New(d, proxy.Options{}))
			DeferCleanup(server.Close)

			c, err = client.New(server.URL + "/")
			Expect(err).NotTo(HaveOccurred())
			c.HTTPClient = server.Client()
			ctx = context.Background()
		})

		It("reads vehicle info", func() {
			info, err := c.VehicleInfo(ctx, "1234")
			Expect(err).NotTo(HaveOccurred())
			Expect(*info).To(Equal(adapter.VehicleInfo{
				VIN:        "123123412412",
				Color:      "Metallic Silver",
				DoorCount:  4,
				DriveTrain: "v8",
			}))
		})

		It("reads doors", func() {
			doors, err := c.Doors(ctx, "1235")
			Expect(err).NotTo(HaveOccurred())
			Expect(doors).To(Equal(adapter.DoorStatus{"frontLeft": true, "frontRight": true}))
		})

		It("reads energy levels", func() {
			fuel, err := c.Fuel(ctx, "1234")
			Expect(err).NotTo(HaveOccurred())
			Expect(fuel.Percent).NotTo(BeNil())
			Expect(*fuel.Percent).To(Equal(30.2))

			battery, err := c.Battery(ctx, "1234")
			Expect(err).NotTo(HaveOccurred())
			Expect(battery.Percent).To(BeNil())
		})

		It("starts and stops engines", func() {
			result, err := c.Engine(ctx, "1234", adapter.EngineStart)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(adapter.EngineStatusSuccess))

			result, err = c.Engine(ctx, "1235", adapter.EngineStop)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(adapter.EngineStatusError))
		})

		It("surfaces rejected actions", func() {
			_, err := c.Engine(ctx, "1234", "IDLE")
			Expect(err).To(Equal(proxyError(http.StatusBadRequest, "Invalid input: command = IDLE")))
			Expect(sim.RequestCount("actionEngineService")).To(BeZero())
		})

		It("surfaces unknown vehicles", func() {
			_, err := c.Doors(ctx, "abcd")
			var proxyErr *client.Error
			Expect(errors.As(err, &proxyErr)).To(BeTrue())
			Expect(proxyErr.Status).To(Equal(http.StatusNotFound))
			Expect(proxyErr.Body).To(Equal("Vehicle id: abcd not found."))
		})

		It("escapes vehicle ids", func() {
			_, err := c.VehicleInfo(ctx, "12/34")
			Expect(err).To(Equal(proxyError(http.StatusNotFound, "Vehicle id: 12/34 not found.")))
		})

		It("collects a full report", func() {
			report, err := c.All(ctx, "1235")
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Info.DoorCount).To(Equal(2))
			Expect(report.Doors).To(HaveLen(2))
			Expect(report.Fuel.Percent).To(BeNil())
			Expect(*report.Battery.Percent).To(Equal(73.2))
			Expect(sim.Requests()).To(HaveLen(4))
		})

		It("fails the report when any part fails", func() {
			report, err := c.All(ctx, "abcd")
			Expect(report).To(BeNil())
			var proxyErr *client.Error
			Expect(errors.As(err, &proxyErr)).To(BeTrue())
			Expect(proxyErr.Status).To(Equal(http.StatusNotFound))
		})
	})

	Context("against stubbed replies", func() {
		const base = "http://proxy.example.com"
		var c *client.Client

		BeforeEach(func() {
			httpmock.Activate()
			DeferCleanup(httpmock.DeactivateAndReset)
			var err error
			c, err = client.New(base)
			Expect(err).NotTo(HaveOccurred())
			c.UserAgent = "client-test"
		})

		It("sends the user agent and action body", func() {
			httpmock.RegisterResponder(http.MethodPost, base+"/vehicles/1234/engine",
				func(req *http.Request) (*http.Response, error) {
					Expect(req.Header.Get("User-Agent")).To(Equal("client-test"))
					Expect(req.Header.Get("Content-Type")).To(Equal("application/json"))
					return httpmock.NewStringResponse(http.StatusOK, `{"status":"success"}`), nil
				})
			result, err := c.Engine(context.Background(), "1234", adapter.EngineStart)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal("success"))
			Expect(httpmock.GetTotalCallCount()).To(Equal(1))
		})

		It("rejects undecodable bodies", func() {
			httpmock.RegisterResponder(http.MethodGet, base+"/vehicles/1234",
				httpmock.NewStringResponder(http.StatusOK, "not json"))
			_, err := c.VehicleInfo(context.Background(), "1234")
			Expect(err).To(MatchError(ContainSubstring("decoding response")))
		})

		It("rejects oversized bodies", func() {
			httpmock.RegisterResponder(http.MethodGet, base+"/vehicles/1234/doors",
				httpmock.NewStringResponder(http.StatusOK, strings.Repeat(" ", connector.MaxResponseLength+1)))
			_, err := c.Doors(context.Background(), "1234")
			Expect(err).To(MatchError(ContainSubstring("exceeds")))
		})

		It("trims plain-text error bodies", func() {
			httpmock.RegisterResponder(http.MethodGet, base+"/vehicles/1234/fuel",
				httpmock.NewStringResponder(http.StatusServiceUnavailable, "server busy\n"))
			_, err := c.Fuel(context.Background(), "1234")
			Expect(err).To(Equal(proxyError(http.StatusServiceUnavailable, "server busy")))
		})

		It("returns transport errors", func() {
			httpmock.RegisterResponder(http.MethodGet, base+"/vehicles/1234/battery",
				httpmock.NewErrorResponder(errors.New("connection refused")))
			_, err := c.Battery(context.Background(), "1234")
			Expect(err).To(MatchError(ContainSubstring("connection refused")))
		})
	})
})
