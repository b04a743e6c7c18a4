package android

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"github.com/odvcencio/rpdist/pkg/packager"
)

var densities = []struct {
	name  string
	scale float64
}{
	{"mdpi", 1},
	{"hdpi", 1.5},
	{"xhdpi", 2},
	{"xxhdpi", 3},
	{"xxxhdpi", 4},
}

// iconMaker renders the launcher icons of every density into the res
// directory of the android project.
type iconMaker struct {
	// project is the game project, templates the fallback for the images
	// it does not provide.
	project, templates string
	dest               string
	always             bool
}

// MakeIcons writes icon, icon_foreground and icon_background for every
// density. Icons the project provides as android-<name>-<density>.png are
// copied as they are.
func MakeIcons(project, templates, androidProject string, always bool) error {
	m := iconMaker{project: project, templates: templates, dest: androidProject, always: always}
	for _, d := range densities {
		if err := m.writeIcon("icon_background", d.name, d.scale, 108, m.background); err != nil {
			return err
		}
		if err := m.writeIcon("icon_foreground", d.name, d.scale, 108, m.foreground); err != nil {
			return err
		}
		if err := m.writeIcon("icon", d.name, d.scale, 48, m.icon); err != nil {
			return err
		}
	}
	return nil
}

func (m iconMaker) writeIcon(name, density string, scale float64, size int, generate func(int) (image.Image, error)) error {
	dst := filepath.Join(m.dest, "app", "src", "main", "res", "mipmap-"+density, name+".png")
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	src := filepath.Join(m.project, fmt.Sprintf("android-%s-%s.png", name, density))
	if _, err := os.Stat(src); err == nil {
		return packager.CopyFile(dst, src, false)
	}
	if _, err := os.Stat(dst); err == nil && !m.always {
		return nil
	}

	img, err := generate(int(scale * float64(size)))
	if err != nil {
		return err
	}
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return f.Close()
}

func (m iconMaker) load(name string) (image.Image, error) {
	for _, dir := range []string{m.project, m.templates} {
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		img, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		return img, nil
	}
	return nil, fmt.Errorf("could not find %s", name)
}

// halve shrinks img by halves down to a size x size square, which keeps
// the quality of large sources.
func halve(img image.Image, size int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	for {
		w, h = max(w/2, size), max(h/2, size)
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
		img = dst
		if w == size && h == size {
			return dst
		}
	}
}

func (m iconMaker) scaled(name string, size int) (image.Image, error) {
	img, err := m.load(name)
	if err != nil {
		return nil, err
	}
	return halve(img, size), nil
}

func (m iconMaker) foreground(size int) (image.Image, error) {
	return m.scaled("android-icon_foreground.png", size)
}

func (m iconMaker) background(size int) (image.Image, error) {
	return m.scaled("android-icon_background.png", size)
}

// icon composes the legacy icon: the foreground over the background,
// cropped to the center and multiplied by the mask.
func (m iconMaker) icon(size int) (image.Image, error) {
	big := size * 3 / 2
	fg, err := m.scaled("android-icon_foreground.png", big)
	if err != nil {
		return nil, err
	}
	bg, err := m.scaled("android-icon_background.png", big)
	if err != nil {
		return nil, err
	}
	mask, err := m.scaled("android-icon_mask.png", size)
	if err != nil {
		return nil, err
	}

	layered := image.NewRGBA(image.Rect(0, 0, big, big))
	draw.Draw(layered, layered.Bounds(), bg, image.Point{}, draw.Src)
	draw.Draw(layered, layered.Bounds(), fg, image.Point{}, draw.Over)

	offset := size / 4
	out := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := range size {
		for x := range size {
			c := layered.RGBAAt(x+offset, y+offset)
			mk := color.RGBAModel.Convert(mask.At(x, y)).(color.RGBA)
			out.SetRGBA(x, y, color.RGBA{
				R: mul(c.R, mk.R),
				G: mul(c.G, mk.G),
				B: mul(c.B, mk.B),
				A: mul(c.A, mk.A),
			})
		}
	}
	return out, nil
}

func mul(a, b uint8) uint8 { return uint8(uint16(a) * uint16(b) / 255) }
