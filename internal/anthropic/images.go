package anthropic

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
)

const maxSize = 5 * 1024 * 1024 // 5 MB (the max Claude allows per image)

// DownloadImage loads an image from a URL or a local file path, shrinking
// local files that exceed the per-image size cap.
func DownloadImage(path string) ([]byte, error) {
	buffer := bytes.Buffer{}

	// Download the image from the internet
	if strings.HasPrefix(path, "https://") {
		rsp, err := http.Get(path)
		if err != nil {
			return nil, err
		}
		defer rsp.Body.Close()

		_, err = io.Copy(&buffer, rsp.Body)
		if err != nil {
			return nil, err
		}

		return buffer.Bytes(), nil
	}

	// Otherwise read the image from a local file path
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	fileInfo, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	// We immediately send the bytes back if we don't need to resize the image
	if fileInfo.Size() <= maxSize {
		_, err := io.Copy(&buffer, file)
		if err != nil {
			return nil, fmt.Errorf("copying image bytes: %w", err)
		}
		return buffer.Bytes(), nil
	}

	log.Printf("re-sizing photo at path=%s", path)

	targetSize := float64(maxSize) / float64(fileInfo.Size())

	switch filepath.Ext(path) {
	case ".jpg", ".jpeg":
		img, err := jpeg.Decode(file)
		if err != nil {
			return nil, err
		}

		err = jpeg.Encode(&buffer, resizeImg(img, targetSize), &jpeg.Options{Quality: jpeg.DefaultQuality})
		if err != nil {
			return nil, fmt.Errorf("encoding resized image: %w", err)
		}

	case ".png":
		img, err := png.Decode(file)
		if err != nil {
			return nil, err
		}

		encoder := png.Encoder{CompressionLevel: png.BestCompression}
		err = encoder.Encode(&buffer, resizeImg(img, targetSize))
		if err != nil {
			return nil, fmt.Errorf("encoding resized image: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported image type %q (want .jpg or .png)", filepath.Ext(path))
	}

	return buffer.Bytes(), nil
}

func resizeImg(img image.Image, scale float64) image.Image {
	bounds := img.Bounds()
	width := uint(float64(bounds.Dx()) * scale)
	return resize.Resize(width, 0, img, resize.Lanczos3)
}
