// Extract sanctioned member IDs from an exported ledger dump

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

func main() {
	raw, err := os.ReadFile("export.json")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read file: %v\n", err)
		os.Exit(1)
	}

	var result struct {
		Actions []struct {
			Type         string      `json:"action_type"`
			TargetUserID interface{} `json:"target_user_id"`
		} `json:"actions"`
	}

	if err := json.Unmarshal(raw, &result); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse JSON: %v\n", err)
		os.Exit(1)
	}

	// Collect unique target IDs of removal-grade actions
	seen := make(map[int64]struct{})
	ids := make([]string, 0)

	for _, action := range result.Actions {
		switch action.Type {
		case "suspend_user", "ban_user":
		default:
			continue
		}

		var id int64
		switch value := action.TargetUserID.(type) {
		case float64:
			id = int64(value)
		case string:
			parsed, err := strconv.ParseInt(strings.TrimPrefix(value, "member"), 10, 64)
			if err != nil {
				continue
			}
			id = parsed
		default:
			continue
		}

		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, strconv.FormatInt(id, 10))
	}

	fmt.Println(strings.Join(ids, ","))
}
