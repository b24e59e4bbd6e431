package pairing

import (
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRandomPair(t *testing.T) {
	Convey("Given a seeded selector", t, func() {
		s := New(WithSeed(42))

		Convey("When fewer than two names are available", func() {
			_, _, errOne := s.RandomPair([]string{"only"})
			_, _, errNone := s.RandomPair(nil)

			Convey("Then it refuses to pair", func() {
				So(errOne, ShouldEqual, ErrInsufficientCatalog)
				So(errNone, ShouldEqual, ErrInsufficientCatalog)
			})
		})

		Convey("When two names are available", func() {
			a, b, err := s.RandomPair([]string{"x", "y"})

			Convey("Then both are returned", func() {
				So(err, ShouldBeNil)
				So(a, ShouldNotEqual, b)
				So([]string{"x", "y"}, ShouldContain, a)
				So([]string{"x", "y"}, ShouldContain, b)
			})
		})

		Convey("When many pairs are drawn", func() {
			names := []string{"a", "b", "c", "d"}
			counts := make(map[[2]string]int)
			const draws = 12000
			for i := 0; i < draws; i++ {
				a, b, err := s.RandomPair(names)
				So(err, ShouldBeNil)
				So(a, ShouldNotEqual, b)
				counts[[2]string{a, b}]++
			}

			Convey("Then every ordered pair shows up at a similar rate", func() {
				So(counts, ShouldHaveLength, 12)
				for _, c := range counts {
					// expected 1000 per ordered pair
					So(c, ShouldBeBetween, 850, 1150)
				}
			})
		})

		Convey("When the same seed is reused", func() {
			other := New(WithSeed(42))
			names := []string{"a", "b", "c", "d", "e"}

			Convey("Then the sequences match", func() {
				for i := 0; i < 20; i++ {
					a1, b1, _ := s.RandomPair(names)
					a2, b2, _ := other.RandomPair(names)
					So(a1, ShouldEqual, a2)
					So(b1, ShouldEqual, b2)
				}
			})
		})
	})
}

func TestRandomPairConcurrent(t *testing.T) {
	Convey("Given a selector shared across goroutines", t, func() {
		s := New()
		names := []string{"a", "b", "c"}

		var wg sync.WaitGroup
		var mu sync.Mutex
		same := 0
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 500; i++ {
					a, b, err := s.RandomPair(names)
					if err != nil || a == b {
						mu.Lock()
						same++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then no draw repeats an item", func() {
			So(same, ShouldEqual, 0)
		})
	})
}
