package worldmap

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/gridkeep/server/internal/logger"
)

// roomFile is the on-disk shape of one room entry within a map YAML file.
type roomFile struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Kind        string `yaml:"kind"`
	X           int    `yaml:"x"`
	Y           int    `yaml:"y"`
	Portal      *struct {
		TargetMap       string `yaml:"target_map"`
		TargetX         int    `yaml:"target_x"`
		TargetY         int    `yaml:"target_y"`
		TargetDirection string `yaml:"target_direction"`
	} `yaml:"portal,omitempty"`
}

// mapFile is the on-disk shape of a single map: one YAML document per map,
// the teacher's one-file-per-concern layout generalized to "one file per
// map" under the configured maps directory.
type mapFile struct {
	ID    string     `yaml:"id"`
	Name  string     `yaml:"name"`
	Rooms []roomFile `yaml:"rooms"`
}

// LoadMapsFromYAML reads every *.yaml file in dir as one map, the way the
// teacher's item/NPC catalogues each load from a single file: read, parse,
// validate-and-warn rather than fail outright on a recoverable defect.
func LoadMapsFromYAML(dir string) (*World, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read maps directory: %w", err)
	}

	w := NewWorld()
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read map file %s: %w", path, err)
		}
		var mf mapFile
		if err := yaml.Unmarshal(data, &mf); err != nil {
			return nil, fmt.Errorf("failed to parse map file %s: %w", path, err)
		}
		if mf.ID == "" {
			logger.Warning("map file missing id, skipped", "path", path)
			continue
		}

		m := NewMap(mf.ID, mf.Name)
		for _, rf := range mf.Rooms {
			if rf.ID == "" {
				logger.Warning("room entry missing id, skipped", "map_id", mf.ID)
				continue
			}
			kind := RoomKind(rf.Kind)
			if kind == "" {
				kind = KindNormal
			}
			room := NewRoom(rf.ID, mf.ID, rf.Name, rf.Description, kind, Coord{X: rf.X, Y: rf.Y})
			if rf.Portal != nil {
				dir, ok := ParseDirection(rf.Portal.TargetDirection)
				if !ok {
					logger.Warning("room portal has unrecognized direction, ignored",
						"map_id", mf.ID, "room_id", rf.ID, "direction", rf.Portal.TargetDirection)
				} else {
					room.Portal = &Portal{
						TargetMap:       rf.Portal.TargetMap,
						TargetX:         rf.Portal.TargetX,
						TargetY:         rf.Portal.TargetY,
						TargetDirection: dir,
					}
				}
			}
			m.AddRoom(room)
		}
		w.AddMap(m)
	}
	return w, nil
}
