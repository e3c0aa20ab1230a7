package gm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jarcoal/httpmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"

	"github.com/kdious/smartcar-proxy/internal/gmtest"
	"github.com/kdious/smartcar-proxy/internal/log"
	"github.com/kdious/smartcar-proxy/pkg/adapter"
	"github.com/kdious/smartcar-proxy/pkg/adapter/gm"
	"github.com/kdious/smartcar-proxy/pkg/connector/inet"
	"github.com/kdious/smartcar-proxy/pkg/protocol"
)

const vendorURL = "http://gm.example.com/"

type completion struct {
	txn    adapter.TransactionID
	result protocol.Result
}

func collector() (adapter.Callback, <-chan completion) {
	ch := make(chan completion, 1)
	return func(txn adapter.TransactionID, result protocol.Result) {
		ch <- completion{txn: txn, result: result}
	}, ch
}

func receive(ch <-chan completion) completion {
	var c completion
	Eventually(ch, 2*time.Second).Should(Receive(&c))
	Consistently(ch, 50*time.Millisecond).ShouldNot(Receive())
	return c
}

func percent(v float64) *float64 {
	return &v
}

var _ = Describe("GM adapter", func() {
	var (
		ctx context.Context
		a   *gm.Adapter
	)

	Context("against the simulator", func() {
		var sim *gmtest.Server

		BeforeEach(func() {
			ctx = context.Background()
			sim = gmtest.NewServer()
			server := sim.Start()
			DeferCleanup(server.Close)
			conn, err := inet.NewConnection(server.URL, server.Client())
			Expect(err).NotTo(HaveOccurred())
			a = gm.New(conn)
		})

		It("normalizes a four-door sedan", func() {
			cb, ch := collector()
			a.GetVehicleInfo(ctx, 7, "1234", cb)
			c := receive(ch)
			Expect(c.txn).To(Equal(adapter.TransactionID(7)))
			Expect(c.result.Code).To(Equal(protocol.CodeSuccess))
			Expect(c.result.Payload).To(Equal(adapter.VehicleInfo{
				VIN:        "123123412412",
				Color:      "Metallic Silver",
				DoorCount:  4,
				DriveTrain: "v8",
			}))
		})

		It("normalizes a two-door coupe", func() {
			cb, ch := collector()
			a.GetVehicleInfo(ctx, 8, "1235", cb)
			c := receive(ch)
			body, err := json.Marshal(c.result.Payload)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(Equal(`{"vin":"1235AZ91XP","color":"Forest Green","doorCount":2,"driveTrain":"electric"}`))
		})

		It("reports door lock state for every vendor door", func() {
			cb, ch := collector()
			a.GetSecurityStatus(ctx, 1, "1234", cb)
			c := receive(ch)
			Expect(c.result.Code).To(Equal(protocol.CodeSuccess))
			Expect(c.result.Payload).To(Equal(adapter.DoorStatus{
				"frontLeft":  false,
				"frontRight": true,
				"backLeft":   false,
				"backRight":  true,
			}))
		})

		DescribeTable("energy levels",
			func(id string, kind adapter.EnergyKind, expected *float64) {
				cb, ch := collector()
				a.GetEnergyInfo(ctx, 1, id, kind, cb)
				c := receive(ch)
				Expect(c.result.Code).To(Equal(protocol.CodeSuccess))
				Expect(c.result.Payload).To(Equal(adapter.EnergyLevel{Percent: expected}))
			},
			Entry("fuel of a gasoline car", "1234", adapter.EnergyFuel, percent(30.2)),
			Entry("battery of a gasoline car", "1234", adapter.EnergyBattery, nil),
			Entry("battery of an electric car", "1235", adapter.EnergyBattery, percent(73.2)),
			Entry("fuel of an electric car", "1235", adapter.EnergyFuel, nil),
		)

		It("maps EXECUTED to success", func() {
			cb, ch := collector()
			a.StartStopEngine(ctx, 1, "1234", adapter.EngineStart, cb)
			c := receive(ch)
			Expect(c.result).To(Equal(protocol.Success(adapter.EngineResult{Status: "success"})))
			Expect(sim.Requests()).To(ContainElement(gmtest.Request{
				Service:      "actionEngineService",
				ID:           "1234",
				ResponseType: "JSON",
				Command:      "START_VEHICLE",
			}))
		})

		It("maps any other action status to error", func() {
			cb, ch := collector()
			a.StartStopEngine(ctx, 1, "1235", adapter.EngineStop, cb)
			c := receive(ch)
			Expect(c.result).To(Equal(protocol.Success(adapter.EngineResult{Status: "error"})))
			Expect(sim.Requests()[0].Command).To(Equal("STOP_VEHICLE"))
		})

		It("rejects unknown engine commands without contacting the vendor", func() {
			cb, ch := collector()
			a.StartStopEngine(ctx, 3, "1234", adapter.EngineCommand("UNKNOWN"), cb)
			c := receive(ch)
			Expect(c.txn).To(Equal(adapter.TransactionID(3)))
			Expect(c.result).To(Equal(protocol.InvalidInput("Invalid input: command = UNKNOWN")))
			Expect(sim.Requests()).To(BeEmpty())
		})

		It("rejects unknown energy kinds without contacting the vendor", func() {
			cb, ch := collector()
			a.GetEnergyInfo(ctx, 4, "1234", adapter.EnergyKind("hydrogen"), cb)
			c := receive(ch)
			Expect(c.result.Code).To(Equal(protocol.CodeInvalidInput))
			Expect(sim.Requests()).To(BeEmpty())
		})

		It("passes vendor errors through for unknown vehicles", func() {
			for _, call := range []func(adapter.Callback){
				func(cb adapter.Callback) { a.GetVehicleInfo(ctx, 1, "abcd", cb) },
				func(cb adapter.Callback) { a.GetSecurityStatus(ctx, 1, "abcd", cb) },
				func(cb adapter.Callback) { a.GetEnergyInfo(ctx, 1, "abcd", adapter.EnergyFuel, cb) },
				func(cb adapter.Callback) { a.GetEnergyInfo(ctx, 1, "abcd", adapter.EnergyBattery, cb) },
				func(cb adapter.Callback) { a.StartStopEngine(ctx, 1, "abcd", adapter.EngineStart, cb) },
			} {
				cb, ch := collector()
				call(cb)
				c := receive(ch)
				Expect(c.result).To(Equal(protocol.RemoteServerError(http.StatusNotFound, "Vehicle id: abcd not found.")))
			}
		})

		It("resolves a vendor that never answers once the context expires", func() {
			sim.Delay = func(gmtest.Request) time.Duration { return time.Hour }
			timeoutCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancel()
			cb, ch := collector()
			a.GetVehicleInfo(timeoutCtx, 1, "1234", cb)
			c := receive(ch)
			Expect(c.result.Code).To(Equal(protocol.CodeRemoteServerError))
			Expect(c.result.RemoteStatus).To(Equal(http.StatusGatewayTimeout))
		})
	})

	Context("against stubbed vendor replies", func() {
		BeforeEach(func() {
			ctx = context.Background()
			httpmock.Activate()
			DeferCleanup(httpmock.DeactivateAndReset)
			conn, err := inet.NewConnection(vendorURL, nil)
			Expect(err).NotTo(HaveOccurred())
			a = gm.New(conn)
		})

		It("uses the HTTP status and envelope reason on non-200 replies", func() {
			httpmock.RegisterResponder(http.MethodPost, vendorURL+"getVehicleInfoService/",
				httpmock.NewStringResponder(http.StatusServiceUnavailable, `{"status":"503","reason":"maintenance window"}`))
			cb, ch := collector()
			a.GetVehicleInfo(ctx, 1, "1234", cb)
			Expect(receive(ch).result).To(Equal(protocol.RemoteServerError(http.StatusServiceUnavailable, "maintenance window")))
		})

		It("uses the raw body as reason when a non-200 reply is not JSON", func() {
			httpmock.RegisterResponder(http.MethodPost, vendorURL+"getSecurityStatusService/",
				httpmock.NewStringResponder(http.StatusInternalServerError, "upstream exploded"))
			cb, ch := collector()
			a.GetSecurityStatus(ctx, 1, "1234", cb)
			Expect(receive(ch).result).To(Equal(protocol.RemoteServerError(http.StatusInternalServerError, "upstream exploded")))
		})

		It("accepts numeric envelope statuses", func() {
			httpmock.RegisterResponder(http.MethodPost, vendorURL+"getEnergyService/",
				httpmock.NewStringResponder(http.StatusOK, `{"status":404,"reason":"gone"}`))
			cb, ch := collector()
			a.GetEnergyInfo(ctx, 1, "1234", adapter.EnergyFuel, cb)
			Expect(receive(ch).result).To(Equal(protocol.RemoteServerError(http.StatusNotFound, "gone")))
		})

		It("keeps informational envelope statuses out of the caller's response", func() {
			httpmock.RegisterResponder(http.MethodPost, vendorURL+"getVehicleInfoService/",
				httpmock.NewStringResponder(http.StatusOK, `{"status":"103","reason":"vendor hiccup"}`))
			cb, ch := collector()
			a.GetVehicleInfo(ctx, 1, "1234", cb)
			result := receive(ch).result
			Expect(result).To(Equal(protocol.RemoteServerError(http.StatusEarlyHints, "vendor hiccup")))
			status, body := protocol.Translate(result)
			Expect(status).To(Equal(http.StatusBadGateway))
			Expect(body).To(Equal("vendor hiccup"))
		})

		It("fills in a reason when the envelope has none", func() {
			httpmock.RegisterResponder(http.MethodPost, vendorURL+"getEnergyService/",
				httpmock.NewStringResponder(http.StatusOK, `{"status":"500"}`))
			cb, ch := collector()
			a.GetEnergyInfo(ctx, 1, "1234", adapter.EnergyFuel, cb)
			Expect(receive(ch).result).To(Equal(protocol.RemoteServerError(http.StatusInternalServerError, "Internal Server Error")))
		})

		It("reports a bad gateway for malformed replies", func() {
			httpmock.RegisterResponder(http.MethodPost, vendorURL+"getVehicleInfoService/",
				httpmock.NewStringResponder(http.StatusOK, `<html>`))
			cb, ch := collector()
			a.GetVehicleInfo(ctx, 1, "1234", cb)
			c := receive(ch)
			Expect(c.result.Code).To(Equal(protocol.CodeRemoteServerError))
			Expect(c.result.RemoteStatus).To(Equal(http.StatusBadGateway))
		})

		It("reports a bad gateway when data is missing", func() {
			httpmock.RegisterResponder(http.MethodPost, vendorURL+"actionEngineService/",
				httpmock.NewStringResponder(http.StatusOK, `{"status":"200"}`))
			cb, ch := collector()
			a.StartStopEngine(ctx, 1, "1234", adapter.EngineStart, cb)
			Expect(receive(ch).result.RemoteStatus).To(Equal(http.StatusBadGateway))
		})

		It("reports a bad gateway for unparseable door states", func() {
			httpmock.RegisterResponder(http.MethodPost, vendorURL+"getSecurityStatusService/",
				httpmock.NewStringResponder(http.StatusOK, `{"status":"200","data":{"doors":{"type":"Array","values":[
					{"location":{"type":"String","value":"frontLeft"},"locked":{"type":"Boolean","value":"maybe"}}]}}}`))
			cb, ch := collector()
			a.GetSecurityStatus(ctx, 1, "1234", cb)
			Expect(receive(ch).result.RemoteStatus).To(Equal(http.StatusBadGateway))
		})

		It("reports zero doors when neither body style is set", func() {
			httpmock.RegisterResponder(http.MethodPost, vendorURL+"getVehicleInfoService/",
				httpmock.NewStringResponder(http.StatusOK, `{"status":"200","data":{
					"vin":{"type":"String","value":"X"},
					"fourDoorSedan":{"type":"Boolean","value":"False"},
					"twoDoorCoupe":{"type":"Boolean","value":"False"}}}`))
			cb, ch := collector()
			a.GetVehicleInfo(ctx, 1, "1234", cb)
			Expect(receive(ch).result.Payload).To(Equal(adapter.VehicleInfo{VIN: "X"}))
		})

		It("logs transient failures as warnings", func() {
			buf := gbytes.NewBuffer()
			log.SetOutput(buf)
			DeferCleanup(func() { log.SetOutput(nil) })
			httpmock.RegisterResponder(http.MethodPost, vendorURL+"getSecurityStatusService/",
				httpmock.NewStringResponder(http.StatusServiceUnavailable, `{"reason":"maintenance window"}`))
			httpmock.RegisterResponder(http.MethodPost, vendorURL+"getVehicleInfoService/",
				httpmock.NewStringResponder(http.StatusNotFound, `{"reason":"Vehicle id: abcd not found."}`))

			cb, ch := collector()
			a.GetSecurityStatus(ctx, 7, "1234", cb)
			receive(ch)
			Expect(buf).To(gbytes.Say(`\[warn \] \[txn 7\] getSecurityStatusService failed with status 503, possibly transient: maintenance window`))

			cb, ch = collector()
			a.GetVehicleInfo(ctx, 8, "abcd", cb)
			receive(ch)
			Expect(buf).To(gbytes.Say(`\[error\] \[txn 8\] getVehicleInfoService failed with status 404: Vehicle id: abcd not found.`))
		})

		It("converts transport failures into bad gateway results", func() {
			httpmock.RegisterResponder(http.MethodPost, vendorURL+"getVehicleInfoService/",
				httpmock.NewErrorResponder(errors.New("connection reset by peer")))
			cb, ch := collector()
			a.GetVehicleInfo(ctx, 1, "1234", cb)
			c := receive(ch)
			Expect(c.result.Code).To(Equal(protocol.CodeRemoteServerError))
			Expect(c.result.RemoteStatus).To(Equal(http.StatusBadGateway))
			Expect(c.result.RemoteReason).To(ContainSubstring("connection reset by peer"))
		})
	})
})
