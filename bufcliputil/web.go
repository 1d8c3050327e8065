/*
Copyright © 2022 the bufclip authors.
This file is part of bufclip.

bufclip is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

bufclip is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with bufclip.  If not, see <http://www.gnu.org/licenses/>.
*/

package bufcliputil

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"

	"github.com/ctessum/gobra"
	"github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
	"github.com/spatialmodel/bufclip"
	"github.com/spf13/cobra"
)

// webAddress is where the form is served.
const webAddress = "localhost:7172"

// configHandler loads the configuration file given in the "config" form
// value and replies with the resulting option values as JSON.
func configHandler(w http.ResponseWriter, r *http.Request) {
	if err := Root.PersistentFlags().Set("config", r.FormValue("config")); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := setConfig(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	config := make(map[string]interface{}, len(options))
	for _, option := range options {
		config[option.name] = Cfg.Get(option.name)
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(config); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// webParameter and webAlgorithm describe an algorithm to the form.
type webParameter struct {
	Name        string      `json:"name"`
	Kind        string      `json:"kind"`
	Description string      `json:"description"`
	Default     interface{} `json:"default,omitempty"`
	Min         *float64    `json:"min,omitempty"`
	Max         *float64    `json:"max,omitempty"`
}

type webAlgorithm struct {
	Name        string         `json:"name"`
	DisplayName string         `json:"displayName"`
	Group       string         `json:"group"`
	Validate    bool           `json:"validate"`
	Style       bool           `json:"style"`
	Parameters  []webParameter `json:"parameters"`
}

func newWebAlgorithm(a *bufclip.Algorithm) webAlgorithm {
	wa := webAlgorithm{
		Name:        a.Name,
		DisplayName: a.DisplayName,
		Group:       a.Group,
		Validate:    a.Validate,
		Style:       a.Style,
	}
	for _, p := range a.Parameters {
		wp := webParameter{Name: p.Name, Kind: p.Kind.String(), Description: p.Description, Default: p.Default}
		if p.HasMin {
			min := p.Min
			wp.Min = &min
		}
		if p.HasMax {
			max := p.Max
			wp.Max = &max
		}
		wa.Parameters = append(wa.Parameters, wp)
	}
	return wa
}

// algorithmsHandler replies with the registered algorithms as JSON.
func algorithmsHandler(w http.ResponseWriter, r *http.Request) {
	var algs []webAlgorithm
	for _, a := range bufclip.DefaultRegistry.Algorithms() {
		algs = append(algs, newWebAlgorithm(a))
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(algs); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

const webPage = `
<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>bufclip</title>
	<style>
		html, body {padding: 0; margin: 2% 0; font-family: sans-serif;}
		.container { max-width: 760px; margin: 0 auto; padding: 10px; }
		table.algorithms { border-collapse: collapse; width: 100%; margin-bottom: 1em; font-size: 90%; }
		table.algorithms td, table.algorithms th { border-bottom: 1px solid #ddd; padding: 4px; text-align: left; }
		table.algorithms tr:hover { background: #f4f4f4; cursor: pointer; }
		div[id^="gobra-"] blockquote { border-left: 3px solid #bbb; margin: .3em; color: #333; padding-left: 5px; font-size: 75%; }
		div[id^="gobra-"] input { font-family: monospace; margin-left: .2em; width: 50%; }
		.bad { border: 1px solid #c35; }
		.loaded { border: 1px solid #3c5; }
	</style>
</head>
<body>
<div class="container">
	<h1>bufclip</h1>
	<p>
		Pick an algorithm to see its buffer size limits, then fill in the
		<code>run</code> command below with the algorithm name, an input
		shapefile and an output path.
	</p>
	<table class="algorithms">
		<thead><tr><th>Name</th><th>Description</th><th>Buffer size</th></tr></thead>
		<tbody id="algorithms"></tbody>
	</table>
	<div>
		{{.}}
	</div>
</div>

<script>
function field(name) {
	let el = document.querySelector('[data-name="' + name + '"]');
	return el ? el.children[0] : null;
}

function bufferSize(alg) {
	let p = alg.parameters.find(p => p.name == "BUFFERSIZE");
	if (!p) return "";
	let s = "default " + p.default;
	if (p.min !== undefined || p.max !== undefined)
		s += " (" + (p.min ?? "") + " to " + (p.max ?? "") + ")";
	if (alg.validate) s += ", projected input only";
	return s;
}

fetch("/algorithms").then(res => res.json()).then(algs => {
	let body = document.getElementById("algorithms");
	for (let alg of algs) {
		let row = body.insertRow();
		row.insertCell().textContent = alg.name;
		row.insertCell().textContent = alg.displayName + (alg.style ? " (styled)" : "");
		row.insertCell().textContent = bufferSize(alg);
		row.addEventListener("click", () => {
			let size = field("BufferSize");
			if (size) size.placeholder = bufferSize(alg);
		});
	}
});

let config = field("config");
if (config) config.addEventListener("change", () => {
	fetch("/setConfig?config=" + encodeURIComponent(config.value)).then(res => {
		if (!res.ok) {
			config.classList.add("bad");
			return;
		}
		config.classList.remove("bad");
		res.json().then(data => {
			for (let key in data) {
				let input = field(key);
				if (input && data[key] !== null && input.value != data[key]) {
					input.value = data[key];
					input.classList.add("loaded");
				}
			}
		});
	});
});
</script>
</body>
</html>`

// StartWebServer serves a form for the bufclip commands and opens it in
// a browser.
func StartWebServer() {
	if err := setConfig(); err != nil {
		logrus.WithError(err).Warn("bufclip: ignoring configuration file")
	}
	http.HandleFunc("/setConfig", configHandler)
	http.HandleFunc("/algorithms", algorithmsHandler)

	for _, cmd := range []*cobra.Command{Root, versionCmd, listCmd, describeCmd, runCmd} {
		cmd.SilenceUsage = true
	}
	server := gobra.Server{
		Root:          Root,
		ServerAddress: webAddress,
		HTML:          template.Must(template.New("bufclip").Parse(webPage)),
	}
	logrus.WithField("address", webAddress).Info("bufclip: starting web form")
	if err := open.Run("http://" + webAddress); err != nil {
		fmt.Println("Please visit http://" + webAddress)
	}
	server.Start()
}
