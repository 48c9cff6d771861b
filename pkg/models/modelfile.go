package models

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/locksight/locksight/pkg/domain"
	"github.com/locksight/locksight/pkg/ir"
)

// ModelFile is the YAML shape for user-supplied model extensions.
//
//	blocking:
//	  - proc: com.example.Api.fetchSync
//	    severity: HIGH
//	    description: Api.fetchSync
//	strict_mode:
//	  - proc: com.example.Disk.readAll
//	    description: Disk.readAll
//	ui_thread_markers:
//	  - com.example.Threads.assertUi
//	synchronized_wrappers:
//	  - com.example.Maps.syncWrap
//	skip:
//	  - com.example.generated.
type ModelFile struct {
	Blocking []struct {
		Proc        string `yaml:"proc"`
		Severity    string `yaml:"severity"`
		Description string `yaml:"description"`
	} `yaml:"blocking"`
	StrictMode []struct {
		Proc        string `yaml:"proc"`
		Description string `yaml:"description"`
	} `yaml:"strict_mode"`
	UIThreadMarkers      []string `yaml:"ui_thread_markers"`
	SynchronizedWrappers []string `yaml:"synchronized_wrappers"`
	Skip                 []string `yaml:"skip"`
}

// LoadFile merges a YAML model file into the classifier's tables.
func (c *Classifier) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var mf ModelFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	c.merge(&mf)
	return nil
}

func (c *Classifier) merge(mf *ModelFile) {
	for _, b := range mf.Blocking {
		desc := b.Description
		if desc == "" {
			desc = b.Proc
		}
		c.blocking[b.Proc] = BlockingModel{
			Description: desc,
			Severity:    parseSeverity(b.Severity),
		}
	}
	for _, s := range mf.StrictMode {
		desc := s.Description
		if desc == "" {
			desc = s.Proc
		}
		c.strictMode[s.Proc] = desc
	}
	for _, m := range mf.UIThreadMarkers {
		if strings.Contains(m, ".") {
			c.uiMarkers[m] = true
		} else {
			c.uiMethodNames[m] = true
		}
	}
	for _, w := range mf.SynchronizedWrappers {
		c.syncWrappers[w] = true
	}
	c.skipPrefixes = append(c.skipPrefixes, mf.Skip...)
}

func parseSeverity(s string) domain.Severity {
	switch strings.ToUpper(s) {
	case "HIGH":
		return domain.SeverityHigh
	case "MEDIUM":
		return domain.SeverityMedium
	}
	return domain.SeverityLow
}

// AddLockMethod registers an extra lock/unlock method pair, used by frontends
// whose lock APIs are not in the built-in tables.
func (c *Classifier) AddLockMethod(lock, unlock ir.Procname) {
	c.lockMethods[lock.String()] = true
	c.unlockMethods[unlock.String()] = true
}
