package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mazerl/grid_world"
	"mazerl/mazes"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNumbered(t *testing.T) {
	Convey("Output names are numbered only for batches", t, func() {
		defer func(n int) { numMazes = n }(numMazes)

		numMazes = 1
		So(numbered("maze.json", 0), ShouldEqual, "maze.json")
		numMazes = 3
		So(numbered("maze.json", 1), ShouldEqual, "maze-2.json")
		So(numbered("classic", 0), ShouldEqual, "classic-1")
	})
}

func TestMazeSource(t *testing.T) {
	Convey("Given a config with a file store in a temp dir", t, func() {
		dir := t.TempDir()
		defer func(p string) { configPath = p }(configPath)
		configPath = filepath.Join(dir, "missing.yaml")
		cfg, err := loadConfig()
		So(err, ShouldBeNil)
		cfg.Store.Path = filepath.Join(dir, "mazes.json")
		ctx := context.Background()

		Convey("No source is the default maze", func() {
			rec, err := mazeSource{}.load(ctx, cfg)
			So(err, ShouldBeNil)
			So(rec.Grid, ShouldResemble, grid_world.Default())
		})

		Convey("An exported file is imported", func() {
			filename, err := writeExport(filepath.Join(dir, "maze"), mazes.NewRecord("m", grid_world.Default()))
			So(err, ShouldBeNil)
			So(filename, ShouldEndWith, ".json")

			rec, err := mazeSource{file: filename}.load(ctx, cfg)
			So(err, ShouldBeNil)
			So(rec.Grid, ShouldResemble, grid_world.Default())
		})

		Convey("A stored maze is loaded by name", func() {
			store := mazes.NewFileStore(cfg.Store.Path)
			_, err := save(ctx, store, mazes.NewRecord("classic", grid_world.Default()))
			So(err, ShouldBeNil)

			rec, err := mazeSource{name: "classic"}.load(ctx, cfg)
			So(err, ShouldBeNil)
			So(rec.Name, ShouldEqual, "classic")

			_, err = mazeSource{name: "nope"}.load(ctx, cfg)
			So(errors.Is(err, mazes.ErrNotFound), ShouldBeTrue)
		})

		Convey("Both a file and a name is an error", func() {
			_, err := mazeSource{file: "a.json", name: "a"}.load(ctx, cfg)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestPolicyFile(t *testing.T) {
	Convey("A written policy reads back the same", t, func() {
		pol := grid_world.NewPolicy()
		pol.Set(grid_world.Position{Row: 1, Col: 1}, grid_world.Right)
		pol.Set(grid_world.Position{Row: 1, Col: 2}, grid_world.Down)

		filename := filepath.Join(t.TempDir(), "policy.json")
		So(writePolicy(filename, pol), ShouldBeNil)
		got, err := readPolicy(filename)
		So(err, ShouldBeNil)
		So(got.Flat(), ShouldResemble, pol.Flat())

		So(os.WriteFile(filename, []byte(`{"policy":[1,2]}`), 0o644), ShouldBeNil)
		_, err = readPolicy(filename)
		So(err, ShouldNotBeNil)
	})
}

func TestGenCommand(t *testing.T) {
	Convey("gen saves and exports a seeded maze", t, func() {
		dir := t.TempDir()
		out := filepath.Join(dir, "maze.json")
		rootCmd.SetArgs([]string{
			"gen", "--config", filepath.Join(dir, "missing.yaml"),
			"--tier", "easy", "--seed", "11", "--output", out,
		})
		So(Execute(), ShouldBeNil)

		data, err := os.ReadFile(out)
		So(err, ShouldBeNil)
		rec, err := mazes.Import("maze", data)
		So(err, ShouldBeNil)
		So(rec.Grid.Validate(), ShouldBeNil)

		rootCmd.SetArgs([]string{"gen", "--tier", "brutal"})
		So(Execute(), ShouldNotBeNil)
	})
}
