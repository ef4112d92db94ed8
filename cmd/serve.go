/*
Copyright © 2025 Denis Khalturin
All rights reserved.

Redistribution and use in source and binary forms, with or without
modification, are permitted provided that the following conditions are met:

1. Redistributions of source code must retain the above copyright notice,
   this list of conditions and the following disclaimer.

2. Redistributions in binary form must reproduce the above copyright notice,
   this list of conditions and the following disclaimer in the documentation
   and/or other materials provided with the distribution.

3. Neither the name of the copyright holder nor the names of its contributors
   may be used to endorse or promote products derived from this software
   without specific prior written permission.

THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
POSSIBILITY OF SUCH DAMAGE.
*/
// prettier-ignore-end
package cmd

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"schemapin/internal/application"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the discovery, revocation, and skill-signature endpoints",
	Run: func(cmd *cobra.Command, args []string) {
		app, err := application.New()
		if err != nil {
			slog.Error("failed to initialize application", "error", err)
			os.Exit(1)
		}

		app.Up()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Duration("store-conn-max-idle-time", 5*time.Minute, "Max idle time of pin store connections")
	serveCmd.Flags().Duration("store-conn-max-lifetime", 30*time.Minute, "Max lifetime of pin store connections")
	serveCmd.Flags().Duration("store-dump-interval", 5*time.Second, "Dump interval for the pin store")
	serveCmd.Flags().Int("store-max-idle-conns", 5, "Max idle connections to the pin store")
	serveCmd.Flags().Int("store-max-open-conns", 5, "Max open connections to the pin store")
	serveCmd.Flags().String("store-dsn", "", "Pin store DSN connection string")
	serveCmd.Flags().String("store-dump-dir", "/tmp/"+pkg, "Directory for memory/filesystem pin-store dumps")
	serveCmd.Flags().StringP("store-type", "s", "memory", "Pin store type: memory, filesystem, redis, postgres")
	serveCmd.Flags().String("signing-public-key", "", "Path to the developer's public key PEM")
	serveCmd.Flags().String("signing-developer-name", "", "Developer name advertised in the discovery document")
	serveCmd.Flags().String("discovery-contact", "", "Contact URI advertised in the discovery document")
	serveCmd.Flags().String("discovery-revocation-file", "", "Path to a standalone revocation document")
	serveCmd.Flags().String("discovery-skills-dir", "", "Directory of signed skill subdirectories to serve")

	viper.BindPFlag("store.conn_max_idle_time", serveCmd.Flags().Lookup("store-conn-max-idle-time"))
	viper.BindPFlag("store.conn_max_lifetime", serveCmd.Flags().Lookup("store-conn-max-lifetime"))
	viper.BindPFlag("store.dsn", serveCmd.Flags().Lookup("store-dsn"))
	viper.BindPFlag("store.dump_dir", serveCmd.Flags().Lookup("store-dump-dir"))
	viper.BindPFlag("store.dump_interval", serveCmd.Flags().Lookup("store-dump-interval"))
	viper.BindPFlag("store.max_idle_conns", serveCmd.Flags().Lookup("store-max-idle-conns"))
	viper.BindPFlag("store.max_open_conns", serveCmd.Flags().Lookup("store-max-open-conns"))
	viper.BindPFlag("store.type", serveCmd.Flags().Lookup("store-type"))
	viper.BindPFlag("signing.public_key", serveCmd.Flags().Lookup("signing-public-key"))
	viper.BindPFlag("signing.developer_name", serveCmd.Flags().Lookup("signing-developer-name"))
	viper.BindPFlag("discovery.contact", serveCmd.Flags().Lookup("discovery-contact"))
	viper.BindPFlag("discovery.revocation_file", serveCmd.Flags().Lookup("discovery-revocation-file"))
	viper.BindPFlag("discovery.skills_dir", serveCmd.Flags().Lookup("discovery-skills-dir"))
}
