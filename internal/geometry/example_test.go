package geometry_test

import (
	"fmt"
	"log"

	"github.com/robert-malhotra/burn-severity/internal/geometry"
)

func ExampleParseBBox() {
	b, err := geometry.ParseBBox("-120.5,38.0,-120.0,38.5")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(b)
	// Output: -120.5,38,-120,38.5
}

func ExampleBBox_SplitGrid() {
	b := geometry.BBox{West: 0, South: 0, East: 10, North: 6}

	cells := b.SplitGrid(5, 3, 1000, 600)
	fmt.Println(len(cells))
	fmt.Println(cells[0].BBox, cells[0].Width, cells[0].Height)
	// Output:
	// 15
	// 0,0,2,2 200 200
}

func ExampleUnion() {
	a, _ := geometry.BBox{West: 0, South: 0, East: 2, North: 2}.Polygon()
	b, _ := geometry.BBox{West: 1, South: 0, East: 3, North: 2}.Polygon()

	fmt.Printf("%.1f\n", geometry.Union(a, b).Area())
	fmt.Printf("%.1f\n", geometry.Intersection(a, b).Area())
	// Output:
	// 6.0
	// 2.0
}
