package entity

import "image/color"

type BackgroundKind string

const (
	BackgroundSolid BackgroundKind = "solid"
	BackgroundImage BackgroundKind = "image"
	BackgroundVideo BackgroundKind = "video"
)

// BackgroundSpec describes where replacement background pixels come from.
// Color is used by Solid and as the fallback for Image and Video.
type BackgroundSpec struct {
	Kind  BackgroundKind
	Color color.NRGBA
	Path  string
}

func SolidBackground(c color.NRGBA) BackgroundSpec {
	return BackgroundSpec{Kind: BackgroundSolid, Color: c}
}

func ImageBackground(path string, fallback color.NRGBA) BackgroundSpec {
	return BackgroundSpec{Kind: BackgroundImage, Path: path, Color: fallback}
}

func VideoBackground(path string, fallback color.NRGBA) BackgroundSpec {
	return BackgroundSpec{Kind: BackgroundVideo, Path: path, Color: fallback}
}
