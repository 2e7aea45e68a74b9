// Package inpaint provides the engines that repaint masked text regions.
package inpaint

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// OpenCV repaints with the classic Telea or Navier-Stokes algorithms.
type OpenCV struct {
	Radius float32
	Method gocv.InpaintMethods
}

// NewOpenCV returns a Telea inpainter with a 3px radius.
func NewOpenCV() *OpenCV {
	return &OpenCV{Radius: 3, Method: gocv.Telea}
}

func (o *OpenCV) Inpaint(ctx context.Context, img *image.RGBA, mask *image.Gray) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("image to mat: %w", err)
	}
	defer src.Close()

	m, err := gocv.ImageGrayToMatGray(mask)
	if err != nil {
		return nil, fmt.Errorf("mask to mat: %w", err)
	}
	defer m.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Inpaint(src, m, &dst, o.Radius, o.Method)

	out, err := dst.ToImage()
	if err != nil {
		return nil, fmt.Errorf("mat to image: %w", err)
	}
	return out, nil
}
