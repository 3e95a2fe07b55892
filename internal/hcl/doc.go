// Package hcl provides the HCL implementation of config.Loader, the native
// topology format:
//
//	config "config0" {
//	  group {
//	    image "bootstrap" {
//	      path   = "."
//	      core   = 0
//	      role   = "bootstrap"
//	      config = "e2000q_aarch64_boot"
//	    }
//	  }
//	  group {
//	    image "apu" {
//	      path   = "${sdk_dir}/example/amp/apu_running"
//	      core   = 1
//	      role   = "master"
//	      config = "e2000q_aarch64_apu.config"
//	    }
//	    image "rpu" {
//	      path   = "rpu_running"
//	      core   = 2
//	      config = "e2000q_aarch32_rpu"
//	    }
//	  }
//	}
//
// Expressions may reference sdk_dir, project_dir and env("NAME").
package hcl
