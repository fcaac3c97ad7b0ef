package scanner

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/mrz-scanner/internal/engine"
	"github.com/zombor/mrz-scanner/internal/mrz"
)

// fakeCamera is a mock implementation of engine.Camera
type fakeCamera struct {
	mu         sync.Mutex
	open       bool
	paused     bool
	openErr    error
	closeCount int
	pixel      engine.PixelFormat
	region     engine.Region
	viewport   engine.Viewport
}

func newFakeCamera() *fakeCamera {
	return &fakeCamera{viewport: engine.Viewport{Width: 1280, Height: 720}}
}

func (f *fakeCamera) Open(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.open = true
	return nil
}

func (f *fakeCamera) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	f.closeCount++
	return nil
}

func (f *fakeCamera) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = true
	return nil
}

func (f *fakeCamera) Resume(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = false
	f.open = true
	return nil
}

func (f *fakeCamera) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeCamera) IsPaused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused
}

func (f *fakeCamera) SelectDevice(string) error { return nil }

func (f *fakeCamera) SetResolution(int, int) error { return nil }

func (f *fakeCamera) SetPixelFormat(format engine.PixelFormat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pixel = format
	return nil
}

func (f *fakeCamera) SetScanRegion(region engine.Region) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.region = region
	return nil
}

func (f *fakeCamera) VisibleRegion() (engine.Viewport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.viewport, nil
}

func (f *fakeCamera) closes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCount
}

// fakeRouter is a mock implementation of engine.Router
type fakeRouter struct {
	mu           sync.Mutex
	input        engine.Camera
	receiver     engine.ResultReceiver
	initErr      error
	startErr     error
	capturing    bool
	template     string
	startCount   int
	stopCount    int
	captureBatch engine.CapturedResult
	captureErr   error
}

func newFakeRouter() *fakeRouter { return &fakeRouter{} }

func (f *fakeRouter) SetInput(camera engine.Camera) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input = camera
	return nil
}

func (f *fakeRouter) InitSettings(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initErr
}

func (f *fakeRouter) AddResultReceiver(r engine.ResultReceiver) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receiver = r
}

func (f *fakeRouter) StartCapturing(ctx context.Context, template string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.capturing = true
	f.template = template
	f.startCount++
	return nil
}

func (f *fakeRouter) StopCapturing() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.capturing = false
	f.stopCount++
	return nil
}

func (f *fakeRouter) Capture(ctx context.Context, buffer []byte, template string) (engine.CapturedResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.captureErr != nil {
		return engine.CapturedResult{}, f.captureErr
	}
	return f.captureBatch, nil
}

func (f *fakeRouter) getReceiver() engine.ResultReceiver {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.receiver
}

func (f *fakeRouter) isCapturing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.capturing
}

func (f *fakeRouter) currentTemplate() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.template
}

// fakeView is a mock implementation of ViewPort
type fakeView struct {
	mu           sync.Mutex
	attached     bool
	handler      ControlHandler
	bindCount    int
	guide        GuideRect
	guideVisible bool
	selection    map[mrz.DocumentType]bool
	toasts       []string
	alerts       []string
	beeps        int
	resize       func()
}

func newFakeView() *fakeView { return &fakeView{} }

func (f *fakeView) AttachCamera(engine.Camera) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attached = true
	return nil
}

func (f *fakeView) DetachCamera() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attached = false
}

func (f *fakeView) BindControls(handler ControlHandler, buttons []ButtonConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
	f.bindCount++
	return nil
}

func (f *fakeView) OnResize(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resize = fn
}

func (f *fakeView) ShowGuide(rect GuideRect) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guide = rect
	f.guideVisible = true
}

func (f *fakeView) HideGuide() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guideVisible = false
}

func (f *fakeView) SetSelection(enabled map[mrz.DocumentType]bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selection = enabled
}

func (f *fakeView) Toast(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toasts = append(f.toasts, message)
}

func (f *fakeView) Alert(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, message)
}

func (f *fakeView) Beep() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.beeps++
}

func (f *fakeView) toastCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.toasts)
}

func (f *fakeView) alertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alerts)
}

func (f *fakeView) binds() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bindCount
}

func (f *fakeView) isAttached() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attached
}

// passingFields builds a fully valid parsed-field set.
func passingFields() engine.ParsedFields {
	f := newTestFields()
	f.set(mrz.SourcePassportNumber, "L898902C3", engine.ValidationPassed)
	f.set(mrz.SourceBirthYear, "74", engine.ValidationPassed)
	f.set(mrz.SourceBirthMonth, "8", engine.ValidationPassed)
	f.set(mrz.SourceBirthDay, "12", engine.ValidationPassed)
	f.set(mrz.SourceExpiryYear, "26", engine.ValidationPassed)
	f.set(mrz.SourceExpiryMonth, "4", engine.ValidationPassed)
	f.set(mrz.SourceExpiryDay, "15", engine.ValidationPassed)
	f.set(mrz.SourcePrimaryID, "ERIKSSON", engine.ValidationPassed)
	f.set(mrz.SourceSecondaryID, "ANNA MARIA", engine.ValidationPassed)
	f.set(mrz.SourceSex, "F", engine.ValidationPassed)
	f.set(mrz.SourceIssuingState, "UTO", engine.ValidationPassed)
	f.set(mrz.SourceNationality, "UTO", engine.ValidationPassed)
	return f
}

type testFields struct {
	values   map[string]string
	validity map[string]engine.ValidationStatus
}

func newTestFields() *testFields {
	return &testFields{
		values:   make(map[string]string),
		validity: make(map[string]engine.ValidationStatus),
	}
}

func (f *testFields) set(name, value string, status engine.ValidationStatus) {
	f.values[name] = value
	f.validity[name] = status
}

func (f *testFields) FieldValue(name string) string    { return f.values[name] }
func (f *testFields) FieldRawValue(name string) string { return f.values[name] }
func (f *testFields) FieldValidity(name string) engine.ValidationStatus {
	return f.validity[name]
}

func successBatch(codeType string) engine.CapturedResult {
	return engine.CapturedResult{Items: []engine.ResultItem{
		engine.OriginalImageItem{Image: []byte{0xCA, 0xFE}},
		engine.TextLineItem{Text: "P<UTOERIKSSON<<ANNA<MARIA"},
		engine.ParsedResultItem{CodeType: codeType, Fields: passingFields()},
	}}
}

func tinyPNG() []byte {
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

var _ = Describe("Controller", func() {
	var (
		camera *fakeCamera
		router *fakeRouter
		view   *fakeView
		res    *Resources
		modes  *ModeManager
		c      *Controller
	)

	BeforeEach(func() {
		camera = newFakeCamera()
		router = newFakeRouter()
		view = newFakeView()
		res = NewResources(camera, router, view, nil)
		modes = NewModeManager()
		c = NewController(res, modes, Config{ShowGuide: true, SoundEnabled: true})
	})

	Describe("HandleCapturedResult", func() {
		var pending *completion

		BeforeEach(func() {
			var err error
			pending, err = c.arm()
			Expect(err).NotTo(HaveOccurred())
		})

		When("the batch carries only the original image", func() {
			It("keeps waiting without settling", func() {
				c.HandleCapturedResult(engine.CapturedResult{Items: []engine.ResultItem{
					engine.OriginalImageItem{Image: []byte{0x1}},
				}})

				Expect(pending.isSettled()).To(BeFalse())
			})

			It("performs no state transition", func() {
				before := c.state

				c.HandleCapturedResult(engine.CapturedResult{Items: []engine.ResultItem{
					engine.OriginalImageItem{Image: []byte{0x1}},
				}})

				Expect(c.state).To(Equal(before))
			})
		})

		When("the batch carries a text line and parsed result", func() {
			It("settles success with populated data", func() {
				c.HandleCapturedResult(successBatch(mrz.CodeTypeTD3Passport))

				Expect(pending.isSettled()).To(BeTrue())
				result := pending.wait()
				Expect(result.Status).To(Equal(StatusSuccess))
				Expect(result.Data).NotTo(BeNil())
				Expect(result.Data.LastName).To(Equal("ERIKSSON"))
				Expect(result.OriginalImage).To(Equal([]byte{0xCA, 0xFE}))
			})

			It("publishes the result through the shared hook", func() {
				var published *Result
				res = NewResources(camera, router, view, func(r *Result) { published = r })
				c = NewController(res, modes, Config{})
				_, err := c.arm()
				Expect(err).NotTo(HaveOccurred())

				c.HandleCapturedResult(successBatch(mrz.CodeTypeTD3Passport))

				Expect(published).NotTo(BeNil())
				Expect(published.Status).To(Equal(StatusSuccess))
				Expect(res.LastResult()).To(Equal(published))
			})

			It("plays the audible cue when enabled", func() {
				c.HandleCapturedResult(successBatch(mrz.CodeTypeTD3Passport))
				Expect(view.beeps).To(Equal(1))
			})
		})

		When("the code type is unrecognized", func() {
			It("settles failed with a diagnostic message", func() {
				c.HandleCapturedResult(successBatch("MRTD_UNKNOWN"))

				result := pending.wait()
				Expect(result.Status).To(Equal(StatusFailed))
				Expect(result.Message).To(ContainSubstring("unknown document type"))
			})
		})

		It("settles at most once across repeated batches", func() {
			c.HandleCapturedResult(successBatch(mrz.CodeTypeTD3Passport))
			c.HandleCapturedResult(successBatch(mrz.CodeTypeTD3Passport))

			result := pending.wait()
			Expect(result.Status).To(Equal(StatusSuccess))
		})
	})

	Describe("Launch", func() {
		When("the capture cycle succeeds", func() {
			It("resolves success and closes the camera", func() {
				results := make(chan Result, 1)
				go func() {
					defer GinkgoRecover()
					result, err := c.Launch(context.Background())
					Expect(err).NotTo(HaveOccurred())
					results <- result
				}()

				Eventually(router.getReceiver).ShouldNot(BeNil())
				Eventually(router.isCapturing).Should(BeTrue())

				router.getReceiver()(successBatch(mrz.CodeTypeTD3Passport))

				var result Result
				Eventually(results).Should(Receive(&result))
				Expect(result.Status).To(Equal(StatusSuccess))
				Expect(camera.IsOpen()).To(BeFalse())
				Expect(view.isAttached()).To(BeFalse())
			})

			It("starts capturing with the template for the active mode", func() {
				modes.InitFromConfig([]mrz.DocumentType{mrz.Passport})
				results := make(chan Result, 1)
				go func() {
					defer GinkgoRecover()
					result, _ := c.Launch(context.Background())
					results <- result
				}()

				Eventually(router.currentTemplate).Should(Equal("ReadPassport"))

				router.getReceiver()(successBatch(mrz.CodeTypeTD3Passport))
				Eventually(results).Should(Receive())
			})
		})

		When("the user cancels", func() {
			It("resolves cancelled", func() {
				results := make(chan Result, 1)
				go func() {
					defer GinkgoRecover()
					result, err := c.Launch(context.Background())
					Expect(err).NotTo(HaveOccurred())
					results <- result
				}()

				Eventually(router.isCapturing).Should(BeTrue())

				c.HandleCloseBtn()

				var result Result
				Eventually(results).Should(Receive(&result))
				Expect(result.Status).To(Equal(StatusCancelled))
				Expect(camera.IsOpen()).To(BeFalse())
			})
		})

		When("initialization fails", func() {
			BeforeEach(func() {
				router.initErr = errors.New("template corrupt")
			})

			It("alerts, closes the camera, and resolves failed", func() {
				result, err := c.Launch(context.Background())

				Expect(err).NotTo(HaveOccurred())
				Expect(result.Status).To(Equal(StatusFailed))
				Expect(result.Message).To(ContainSubstring("template corrupt"))
				Expect(view.alertCount()).To(Equal(1))
				Expect(camera.IsOpen()).To(BeFalse())
			})
		})

		When("the context is cancelled", func() {
			It("resolves cancelled", func() {
				ctx, cancel := context.WithCancel(context.Background())
				results := make(chan Result, 1)
				go func() {
					defer GinkgoRecover()
					result, _ := c.Launch(ctx)
					results <- result
				}()

				Eventually(router.isCapturing).Should(BeTrue())
				cancel()

				var result Result
				Eventually(results).Should(Receive(&result))
				Expect(result.Status).To(Equal(StatusCancelled))
			})
		})

		When("resources have been disposed", func() {
			It("rejects with a precondition error", func() {
				res.dispose()

				_, err := c.Launch(context.Background())

				Expect(err).To(MatchError(ErrResourcesDisposed))
			})
		})

		It("binds the UI controls exactly once", func() {
			results := make(chan Result, 1)
			go func() {
				defer GinkgoRecover()
				result, _ := c.Launch(context.Background())
				results <- result
			}()

			Eventually(router.isCapturing).Should(BeTrue())
			Expect(view.binds()).To(Equal(1))

			// A second open within the session must not rebind.
			Expect(c.OpenCamera(context.Background())).To(Succeed())
			Expect(view.binds()).To(Equal(1))

			router.getReceiver()(successBatch(mrz.CodeTypeTD3Passport))
			Eventually(results).Should(Receive())
		})
	})

	Describe("ScanImage", func() {
		When("the file is not an image", func() {
			It("resolves failed and toasts", func() {
				result, err := c.ScanImage(context.Background(), "notes.txt", "text/plain", []byte("hello"))

				Expect(err).NotTo(HaveOccurred())
				Expect(result.Status).To(Equal(StatusFailed))
				Expect(result.Message).To(ContainSubstring("unsupported file type"))
				Expect(view.toastCount()).To(Equal(1))
			})
		})

		When("one-shot recognition finds a zone", func() {
			BeforeEach(func() {
				router.captureBatch = successBatch(mrz.CodeTypeTD3Passport)
			})

			It("resolves success through the same mapping path", func() {
				result, err := c.ScanImage(context.Background(), "passport.png", "image/png", tinyPNG())

				Expect(err).NotTo(HaveOccurred())
				Expect(result.Status).To(Equal(StatusSuccess))
				Expect(result.Data.DocumentNumber).To(Equal("L898902C3"))
			})
		})

		When("one-shot recognition finds no zone", func() {
			BeforeEach(func() {
				router.captureBatch = engine.CapturedResult{Items: []engine.ResultItem{
					engine.OriginalImageItem{Image: []byte{0x1}},
				}}
			})

			It("resolves failed", func() {
				result, err := c.ScanImage(context.Background(), "cat.png", "image/png", tinyPNG())

				Expect(err).NotTo(HaveOccurred())
				Expect(result.Status).To(Equal(StatusFailed))
				Expect(result.Message).To(ContainSubstring("no machine-readable zone"))
			})
		})

		When("one-shot recognition errors", func() {
			BeforeEach(func() {
				router.captureErr = errors.New("engine offline")
			})

			It("resolves failed with the diagnostic", func() {
				result, err := c.ScanImage(context.Background(), "passport.png", "image/png", tinyPNG())

				Expect(err).NotTo(HaveOccurred())
				Expect(result.Status).To(Equal(StatusFailed))
				Expect(result.Message).To(ContainSubstring("engine offline"))
			})
		})
	})

	Describe("ToggleScanDocType", func() {
		It("toasts and keeps state when disabling the last type", func() {
			modes.InitFromConfig([]mrz.DocumentType{mrz.Passport})

			c.ToggleScanDocType(mrz.Passport)

			Expect(view.toastCount()).To(Equal(1))
			Expect(modes.Enabled(mrz.Passport)).To(BeTrue())
		})

		It("updates selection and guide on success", func() {
			c.ToggleScanDocType(mrz.Passport)

			Expect(view.selection).To(HaveKeyWithValue(mrz.Passport, false))
			Expect(modes.Mode()).To(Equal(ModeTD1TD2))
		})

		It("restarts the capture loop with the new template", func() {
			results := make(chan Result, 1)
			go func() {
				defer GinkgoRecover()
				result, _ := c.Launch(context.Background())
				results <- result
			}()
			Eventually(router.isCapturing).Should(BeTrue())

			c.ToggleScanDocType(mrz.TD1)
			c.ToggleScanDocType(mrz.TD2)

			Eventually(router.currentTemplate).Should(Equal("ReadPassport"))

			router.getReceiver()(successBatch(mrz.CodeTypeTD3Passport))
			Eventually(results).Should(Receive())
		})
	})

	Describe("resize handling", func() {
		It("hides the guide immediately and recomputes after the quiet period", func() {
			c.resizeQuiet = 10 * time.Millisecond
			results := make(chan Result, 1)
			go func() {
				defer GinkgoRecover()
				result, _ := c.Launch(context.Background())
				results <- result
			}()
			Eventually(router.isCapturing).Should(BeTrue())

			view.mu.Lock()
			resize := view.resize
			view.mu.Unlock()
			Expect(resize).NotTo(BeNil())

			resize()
			view.mu.Lock()
			hidden := !view.guideVisible
			view.mu.Unlock()
			Expect(hidden).To(BeTrue())

			Eventually(func() bool {
				view.mu.Lock()
				defer view.mu.Unlock()
				return view.guideVisible
			}).Should(BeTrue())

			router.getReceiver()(successBatch(mrz.CodeTypeTD3Passport))
			Eventually(results).Should(Receive())
		})
	})
})
