// Package model defines the typed records that flow through a pricing analysis pass.
package model

import (
	"github.com/twpayne/go-geom"
)

// Region is a named postal delivery area.
type Region struct {
	Code     string             `json:"code"`
	Name     string             `json:"name"`
	Order    int                `json:"order"`
	Geometry *geom.MultiPolygon `json:"-"`
}

// CodeName maps a region code to its display name. Lists of CodeName are ordered;
// the order is the catalog order used for tie-breaks and plotting.
type CodeName struct {
	Code string `yaml:"code" mapstructure:"code"`
	Name string `yaml:"name" mapstructure:"name"`
}

// Point is a geolocated entity (a pub) that can belong to at most one region.
type Point struct {
	ID        string  `csv:"pub_id" json:"id"`
	Name      string  `csv:"name" json:"name"`
	Latitude  float64 `csv:"latitude" json:"latitude"`
	Longitude float64 `csv:"longitude" json:"longitude"`
}
