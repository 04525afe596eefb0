package server

import (
	"fmt"
	"math/rand"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/zucenko/hanzo/model"
)

// wall density of generated maps
const randomWalls = 0.2

// Load reads a map file of '#' and '.' rows.
func Load(path string) (*model.Map, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open map: %w", err)
	}
	defer file.Close()
	m, err := model.ParseMap(file)
	if err != nil {
		return nil, fmt.Errorf("map %s: %w", path, err)
	}
	return m, nil
}

// FileGames places players at random on the map read from path.
func FileGames(path string) (GameFactory, error) {
	m, err := Load(path)
	if err != nil {
		return nil, err
	}
	log.Infof("map %s loaded, side %d", path, m.Len)
	return func(address string, cfg model.Config, rng *rand.Rand) (*model.Game, error) {
		return model.NewGame(address, cfg, m, rng)
	}, nil
}

// DefaultGames uses the built-in map and layout when the config matches it
// and generates a map otherwise.
func DefaultGames(address string, cfg model.Config, rng *rand.Rand) (*model.Game, error) {
	if cfg.Len != defaultMap.Len {
		log.Infof("generating map of side %d", cfg.Len)
		return model.NewGame(address, cfg, model.RandomMap(cfg.Len, randomWalls, rng), rng)
	}
	g, err := model.NewGame(address, cfg, defaultMap, rng)
	if err != nil {
		return nil, err
	}
	if cfg.Players == len(defaultPositions) && cfg.Guards == len(defaultGuards) {
		if err := g.Place(defaultPositions, defaultTargets, defaultGuards); err != nil {
			return nil, err
		}
	}
	return g, nil
}

var defaultMap = mustParse(defaultMapText)

func mustParse(text string) *model.Map {
	m, err := model.ParseMap(strings.NewReader(text))
	if err != nil {
		panic(err)
	}
	return m
}

var defaultPositions = []model.Position{
	model.At(40, 1), model.At(1, 5), model.At(45, 45), model.At(2, 39),
}

var defaultTargets = []model.Position{
	model.At(1, 46), model.At(45, 45), model.At(1, 1), model.At(42, 1),
}

var defaultGuards = []model.Guard{
	model.NewGuard(15, 12, model.Up),
	model.NewGuard(10, 45, model.Right),
	model.NewGuard(20, 30, model.Left),
	model.NewGuard(31, 30, model.Up),
	model.NewGuard(41, 10, model.Left),
}

const defaultMapText = `
################################################
#..............................................#
#..............................##..............#
#....................#.........................#
#....................#.................#.......#
#......####.........#...................#......#
#......#...........#.....................#.....#
#......#..........#...........#...........#....#
#......#..........#..........#.............#...#
#......#..........#.........#..................#
#.................#........#...................#
#.................#.......#....................#
#.................#......#.....................#
#.................#......#.....................#
#.....#############......###############.......#
#..............................................#
#..............................................#
#....#.........................................#
#.....#..................................#.....#
#......#.................................#.....#
#.......#............#########...........#.....#
#........#...............................#.....#
#.........#..............................#.....#
#..........#.............................#.....#
#...........#..................................#
#............#.....................#...........#
#.............###########..........#...........#
#........................#.........#...........#
#.........................#........#...........#
#..........................#.......#...........#
#...........................#......#...........#
#............................#.....#...........#
#.......#......................................#
#.......#..............###.....................#
#.......###............#.......................#
#......................#........#..............#
#...............................#.........#....#
#.............####.............####......#.....#
#.................#.............#.......#......#
#..................#....................#......#
##....################..................#......#
#....................#..................#......#
#....................#..................#......#
#.........#..........#......###.....#####......#
#.........#..........#.....#...................#
#....................######....................#
#..............................................#
################################################
`
