package capture

import (
	"fmt"
	"image"

	"github.com/blackjack/webcam"
)

// pixelFormatYUYV is the V4L2 fourcc for packed YUYV 4:2:2, the interchange
// format essentially every UVC webcam supports.
const pixelFormatYUYV = webcam.PixelFormat(0x56595559)

// frameWaitTimeoutSecs bounds a single WaitForFrame call so a wedged camera
// surfaces as an error instead of hanging the capture loop.
const frameWaitTimeoutSecs = 5

// Camera reads frames from a V4L2 device in YUYV and exposes them as
// image.Image values. It implements video.FrameSource.
type Camera struct {
	cam    *webcam.Webcam
	width  int
	height int
}

// NewCamera opens /dev/video<index>, negotiates YUYV at the requested
// resolution and starts streaming. The returned dimensions may differ from
// the request when the driver picks the nearest supported mode.
func NewCamera(index, width, height int) (*Camera, error) {
	path := fmt.Sprintf("/dev/video%d", index)

	cam, err := webcam.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %s: %w", path, err)
	}

	format, w, h, err := cam.SetImageFormat(pixelFormatYUYV, uint32(width), uint32(height))
	if err != nil {
		cam.Close()
		return nil, fmt.Errorf("failed to set image format on %s: %w", path, err)
	}
	if format != pixelFormatYUYV {
		cam.Close()
		return nil, fmt.Errorf("camera %s does not support YUYV capture", path)
	}

	if err := cam.StartStreaming(); err != nil {
		cam.Close()
		return nil, fmt.Errorf("failed to start streaming on %s: %w", path, err)
	}

	return &Camera{
		cam:    cam,
		width:  int(w),
		height: int(h),
	}, nil
}

// Resolution returns the negotiated frame dimensions
func (c *Camera) Resolution() (width, height int) {
	return c.width, c.height
}

// ReadFrame blocks until the next frame arrives and returns it as a 4:2:2
// YCbCr image, which the JPEG encoder consumes without further conversion.
func (c *Camera) ReadFrame() (image.Image, error) {
	if err := c.cam.WaitForFrame(frameWaitTimeoutSecs); err != nil {
		return nil, fmt.Errorf("failed waiting for frame: %w", err)
	}

	raw, err := c.cam.ReadFrame()
	if err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}

	expected := c.width * c.height * 2
	if len(raw) < expected {
		return nil, fmt.Errorf("short frame: got %d bytes, expected %d", len(raw), expected)
	}

	return yuyvToImage(raw, c.width, c.height), nil
}

// Close stops streaming and releases the device
func (c *Camera) Close() error {
	if err := c.cam.StopStreaming(); err != nil {
		c.cam.Close()
		return fmt.Errorf("failed to stop streaming: %w", err)
	}
	return c.cam.Close()
}

// yuyvToImage unpacks packed YUYV (Y0 Cb Y1 Cr per two pixels) into a planar
// 4:2:2 YCbCr image.
func yuyvToImage(raw []byte, width, height int) *image.YCbCr {
	img := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio422)

	for y := 0; y < height; y++ {
		rowOffset := y * width * 2
		for x := 0; x < width; x += 2 {
			i := rowOffset + x*2
			yi := y*img.YStride + x
			ci := y*img.CStride + x/2

			img.Y[yi] = raw[i]
			img.Cb[ci] = raw[i+1]
			img.Y[yi+1] = raw[i+2]
			img.Cr[ci] = raw[i+3]
		}
	}

	return img
}
